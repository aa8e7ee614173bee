package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompareCommandPrintsTable(t *testing.T) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"compare", "--paths", "500", "--steps", "5", "--seed", "3"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("compare: %v (stderr: %s)", err, errOut.String())
	}
	got := out.String()
	for _, want := range []string{"Method", "Call Price", "Put Price", "Monte Carlo", "Black-Scholes", "10.4506", "5.5735", "MC - BS"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "comparison finished") {
		t.Errorf("logs leaked into stdout:\n%s", got)
	}
}

func TestCompareCommandRejectsBadInput(t *testing.T) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"compare", "--vol", "0"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for zero volatility")
	}
}
