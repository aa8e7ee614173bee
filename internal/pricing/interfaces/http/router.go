package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionlab/config"
	"github.com/wyfcoding/optionlab/internal/pricing/application"
	"github.com/wyfcoding/optionlab/limiter"
	"github.com/wyfcoding/optionlab/metrics"
	"github.com/wyfcoding/optionlab/middleware"
	"github.com/wyfcoding/optionlab/server"
)

const maxRequestBody = 1 << 20

// NewRouter 组装 Gin 引擎：治理中间件、业务路由、健康检查与指标。
// 返回的限流器在未启用限流时为 nil。
func NewRouter(cfg *config.Config, svc *application.Service, logger *slog.Logger, m *metrics.Metrics) (*gin.Engine, *limiter.KeyedLimiter) {
	engine := server.NewDefaultGinEngine(server.GinMode(cfg.Server.Environment),
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Tracing(cfg.Server.Name),
		middleware.TraceIDHeader(),
		middleware.Logger(logger),
	)

	engine.GET("/health", HealthHandler)
	if cfg.Metrics.Enabled && m != nil {
		engine.GET(cfg.Metrics.Path, MetricsHandler(m.Handler()))
	}

	api := engine.Group("")
	api.Use(
		middleware.HTTPMetricsMiddlewareWithOptions(m, middleware.MetricsOptions{SlowThreshold: cfg.Metrics.SlowThreshold}),
		middleware.MaxBodyBytes(maxRequestBody),
		middleware.TimeoutMiddleware(cfg.Server.HTTP.RequestTimeout),
	)

	var keyed *limiter.KeyedLimiter
	if cfg.RateLimit.Enabled {
		var mw gin.HandlerFunc
		mw, keyed = middleware.NewLocalRateLimitMiddleware(cfg.RateLimit.Rate, cfg.RateLimit.Burst)
		api.Use(mw)
	}

	// 仅开发环境放行 localhost 来源的 WebSocket 连接.
	upgrader := server.NewStreamUpgrader(cfg.Server.Environment == "dev")
	NewPricingHandler(svc, upgrader, logger).RegisterRoutes(api)
	return engine, keyed
}
