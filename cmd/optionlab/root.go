package main

import (
	"github.com/spf13/cobra"
	"github.com/wyfcoding/optionlab/config"
)

// version 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "optionlab",
		Short:         "European option pricing by GBM Monte Carlo and Black-Scholes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a TOML config file (defaults + APP_* env when empty)")

	cmd.AddCommand(newCompareCmd(opts), newServeCmd(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg := &config.Config{}
	if err := config.Load(o.configPath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
