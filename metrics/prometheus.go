// Package metrics 封装 Prometheus 指标注册表，预置 HTTP 与模拟定价相关的标准指标.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 封装了基于 Prometheus 的指标采集注册表及预定义的标准监控指标。
type Metrics struct {
	registry *prometheus.Registry // 内部独立的 Prometheus 注册中心

	HTTPRequestsTotal     *prometheus.CounterVec   // HTTP 请求总量 (维度: method, path, status)
	HTTPRequestDuration   *prometheus.HistogramVec // HTTP 请求耗时分布
	HTTPInFlight          *prometheus.GaugeVec     // 处理中的 HTTP 请求数
	HTTPSlowRequestsTotal *prometheus.CounterVec   // 慢请求计数

	SimulationsTotal   *prometheus.CounterVec   // 模拟次数 (维度: outcome)
	SimulatedPaths     prometheus.Counter       // 累计生成的路径数
	SimulationDuration prometheus.Histogram     // 单次路径生成耗时
	PricingDuration    *prometheus.HistogramVec // 定价耗时 (维度: method)
	PriceAbsDiff       *prometheus.GaugeVec     // 最近一次 |MC - BS| (维度: option_type)

	BuildInfo *prometheus.GaugeVec
}

// NewMetrics 初始化并返回一个新的指标采集器。
// 它会自动注册 Go 运行时指标和进程指标。
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_server_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.HTTPInFlight = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_server_in_flight_requests",
		Help: "Number of HTTP requests currently being served",
	}, []string{"method", "path"})

	m.HTTPSlowRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_slow_requests_total",
		Help: "Total number of HTTP requests slower than the configured threshold",
	}, []string{"method", "path"})

	m.SimulationsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "optionlab_simulations_total",
		Help: "Total number of path simulations by outcome",
	}, []string{"outcome"})

	m.SimulatedPaths = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optionlab_simulated_paths_total",
		Help: "Total number of GBM paths generated",
	})
	reg.MustRegister(m.SimulatedPaths)

	m.SimulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "optionlab_simulation_duration_seconds",
		Help:    "Wall time spent generating a path set",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
	reg.MustRegister(m.SimulationDuration)

	m.PricingDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optionlab_pricing_duration_seconds",
		Help:    "Wall time spent pricing by method",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"method"})

	m.PriceAbsDiff = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "optionlab_mc_bs_abs_diff",
		Help: "Absolute difference between the last Monte Carlo and Black-Scholes prices",
	}, []string{"option_type"})

	slog.Info("unified metrics registry initialized", "service", serviceName)
	return m
}

// RegisterBuildInfo 注册构建信息指标。
func (m *Metrics) RegisterBuildInfo(serviceName, version string) {
	if m == nil || m.BuildInfo != nil {
		return
	}
	if serviceName == "" {
		serviceName = "unknown"
	}
	if version == "" {
		version = "unknown"
	}

	m.BuildInfo = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build information for the service",
	}, []string{"service", "version"})

	m.BuildInfo.WithLabelValues(serviceName, version).Set(1)
}

// ObserveSimulation 记录一次路径生成。
func (m *Metrics) ObserveSimulation(paths int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SimulationsTotal.WithLabelValues(outcome).Inc()
	if err == nil {
		m.SimulatedPaths.Add(float64(paths))
		m.SimulationDuration.Observe(elapsed.Seconds())
	}
}

// ObservePricing 记录一次定价耗时，method 取 monte_carlo 或 black_scholes。
func (m *Metrics) ObservePricing(method string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PricingDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// SetAbsDiff 更新最近一次两种定价的绝对差。
func (m *Metrics) SetAbsDiff(optionType string, diff float64) {
	if m == nil {
		return
	}
	m.PriceAbsDiff.WithLabelValues(optionType).Set(diff)
}

// NewCounterVec 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// Registry 返回内部注册表，便于测试时采集。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
