package main

import (
	"github.com/spf13/cobra"
	"github.com/wyfcoding/optionlab/app"
	"github.com/wyfcoding/optionlab/config"
	"github.com/wyfcoding/optionlab/idgen"
	"github.com/wyfcoding/optionlab/internal/pricing/application"
	pricinghttp "github.com/wyfcoding/optionlab/internal/pricing/interfaces/http"
	"github.com/wyfcoding/optionlab/logging"
	"github.com/wyfcoding/optionlab/metrics"
	"github.com/wyfcoding/optionlab/server"
	"golang.org/x/time/rate"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pricing HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logging.InitLogger(cfg.Log.LoggingConfig(cfg.Server.Name, "server"))
	logger := logging.Default()
	config.PrintWithMask(cfg)

	if err := idgen.Init(cfg.Snowflake); err != nil {
		return err
	}

	m := metrics.NewMetrics(cfg.Server.Name)
	m.RegisterBuildInfo(cfg.Server.Name, cfg.Version)

	svc := application.NewService(cfg.Simulation, logger.Logger, m)
	engine, keyed := pricinghttp.NewRouter(cfg, svc, logger.Logger, m)

	config.RegisterReloadHook(func(next *config.Config) {
		svc.UpdateDefaults(next.Simulation)
		if keyed != nil {
			keyed.SetLimit(rate.Limit(next.RateLimit.Rate), next.RateLimit.Burst)
			logger.Info("rate limiter updated", "rate", next.RateLimit.Rate, "burst", next.RateLimit.Burst, "tracked_clients", keyed.Len())
		}
		logger.Info("runtime settings reloaded", "paths", next.Simulation.Paths, "rate_limit", next.RateLimit.Rate)
	})

	httpServer := server.NewGinServer(engine, cfg.Server.ListenAddr(), logger.Logger,
		server.WithTimeouts(cfg.Server.HTTP.ReadTimeout, cfg.Server.HTTP.WriteTimeout))

	return app.New(cfg.Server.Name, logger.Logger,
		app.WithServer(httpServer),
		app.WithShutdownTimeout(cfg.Server.HTTP.ShutdownTimeout),
	).Run()
}
