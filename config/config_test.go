package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "optionlab.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	s := c.Simulation
	if s.Spot != 100 || s.Strike != 100 || s.Rate != 0.05 || s.Volatility != 0.2 || s.Maturity != 1 {
		t.Errorf("unexpected model defaults: %+v", s)
	}
	if s.Steps != 252 || s.Paths != 1000 || s.PreviewPaths != 20 {
		t.Errorf("unexpected grid defaults: %+v", s)
	}
	if s.MaxSteps != 10_000 || s.MaxPoints != 50_000_000 {
		t.Errorf("unexpected size limits: %+v", s)
	}
	if (s.Steps+1)*s.Paths > s.MaxPoints {
		t.Errorf("default run must fit the point budget: %+v", s)
	}
	if c.Server.HTTP.Port != 8080 || c.Metrics.Path != "/metrics" {
		t.Errorf("unexpected server defaults: %+v", c.Server)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeTOML(t, `
version = "1.2.0"

[server]
name = "optionlab-test"
environment = "test"

[server.http]
port = 9090

[simulation]
paths = 5000
seed = 42
volatility = 0.35
`)
	var c Config
	if err := Load(path, &c); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Version != "1.2.0" || c.Server.Name != "optionlab-test" || c.Server.HTTP.Port != 9090 {
		t.Errorf("server section not applied: %+v", c.Server)
	}
	if c.Simulation.Paths != 5000 || c.Simulation.Seed != 42 || c.Simulation.Volatility != 0.35 {
		t.Errorf("simulation section not applied: %+v", c.Simulation)
	}
	if c.Simulation.Steps != 252 {
		t.Errorf("missing keys should keep defaults, steps = %d", c.Simulation.Steps)
	}
	if c.Server.ListenAddr() != ":9090" {
		t.Errorf("ListenAddr = %q", c.Server.ListenAddr())
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("APP_SIMULATION_STEPS", "12")
	var c Config
	if err := Load("", &c); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Simulation.Steps != 12 {
		t.Errorf("steps = %d, want 12 from env", c.Simulation.Steps)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero paths":   "[simulation]\npaths = 0\n",
		"negative vol": "[simulation]\nvolatility = -0.1\n",
		"bad level":    "[log]\nlevel = \"verbose\"\n",
		"bad env":      "[server]\nenvironment = \"staging\"\n",
	}
	for name, body := range cases {
		var c Config
		if err := Load(writeTOML(t, body), &c); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	var c Config
	if err := Load(filepath.Join(t.TempDir(), "absent.toml"), &c); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMask(t *testing.T) {
	m := map[string]any{
		"name": "optionlab",
		"auth": map[string]any{"api_token": "abc", "user": "u"},
	}
	mask(m)
	sub := m["auth"].(map[string]any)
	if sub["api_token"] != "******" || sub["user"] != "u" || m["name"] != "optionlab" {
		t.Errorf("mask result = %v", m)
	}
}
