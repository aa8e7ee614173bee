// Package application 编排路径模拟、蒙特卡洛定价与 Black-Scholes 定价，供 CLI 与 HTTP 共用。
package application

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/wyfcoding/optionlab/algorithm/finance"
	"github.com/wyfcoding/optionlab/algorithm/sim"
	"github.com/wyfcoding/optionlab/algorithm/types"
	"github.com/wyfcoding/optionlab/config"
	"github.com/wyfcoding/optionlab/idgen"
	"github.com/wyfcoding/optionlab/logging"
	"github.com/wyfcoding/optionlab/metrics"
	"github.com/wyfcoding/optionlab/xerrors"
)

// Service 期权定价比较服务，除默认参数外无状态，可被并发调用。
type Service struct {
	mu       sync.RWMutex
	defaults config.SimulationConfig

	mc      *sim.MonteCarlo
	bsc     *finance.BlackScholesCalculator
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService 创建定价服务，metrics 可为 nil。
func NewService(defaults config.SimulationConfig, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		defaults: defaults,
		mc:       sim.NewMonteCarlo(),
		bsc:      finance.NewBlackScholesCalculator(),
		logger:   logger,
		metrics:  m,
	}
}

// UpdateDefaults 替换默认参数，配置热更新时调用。
func (s *Service) UpdateDefaults(defaults config.SimulationConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults = defaults
}

// Defaults 返回当前默认参数。
func (s *Service) Defaults() config.SimulationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

// run 是填充默认值并校验后的一次模拟任务。
type run struct {
	params  types.ModelParams
	steps   int
	paths   int
	seed    *uint64
	preview int
	workers int
}

func pick[T any](v *T, def T) T {
	if v != nil {
		return *v
	}
	return def
}

// Params 用默认值补全模型参数并校验定义域。
func (s *Service) Params(req ModelRequest) (types.ModelParams, error) {
	d := s.Defaults()
	p := types.ModelParams{
		Spot:       pick(req.Spot, d.Spot),
		Strike:     pick(req.Strike, d.Strike),
		Rate:       pick(req.Rate, d.Rate),
		Volatility: pick(req.Volatility, d.Volatility),
		Maturity:   pick(req.Maturity, d.Maturity),
	}
	return p, p.Validate()
}

func (s *Service) resolve(req SimulationRequest) (run, error) {
	d := s.Defaults()
	params, err := s.Params(req.ModelRequest)
	if err != nil {
		return run{}, err
	}
	r := run{
		params:  params,
		steps:   pick(req.Steps, d.Steps),
		paths:   pick(req.Paths, d.Paths),
		preview: pick(req.PreviewPaths, d.PreviewPaths),
		workers: d.Workers,
		seed:    req.Seed,
	}
	// 配置中的种子 0 表示每次随机.
	if r.seed == nil && d.Seed != 0 {
		seed := d.Seed
		r.seed = &seed
	}
	if r.steps <= 0 {
		return run{}, xerrors.ErrInvalidSteps.Clone().WithContext("steps", r.steps)
	}
	if r.paths <= 0 {
		return run{}, xerrors.ErrInvalidPaths.Clone().WithContext("paths", r.paths)
	}
	if d.MaxPaths > 0 && r.paths > d.MaxPaths {
		return run{}, xerrors.ErrTooManyPaths.Clone().
			WithDetail("paths %d exceed maximum %d", r.paths, d.MaxPaths).
			WithContext("paths", r.paths)
	}
	if d.MaxSteps > 0 && r.steps > d.MaxSteps {
		return run{}, xerrors.ErrTooManySteps.Clone().
			WithDetail("steps %d exceed maximum %d", r.steps, d.MaxSteps).
			WithContext("steps", r.steps)
	}
	// 以除法比较，steps+1 与乘积都不会溢出.
	budget := min(d.MaxPoints, sim.MaxPoints)
	if budget <= 0 {
		budget = sim.MaxPoints
	}
	if r.steps >= budget/r.paths {
		return run{}, xerrors.ErrSimulationTooLarge.Clone().
			WithDetail("paths %d x (steps %d + 1) exceeds %d points", r.paths, r.steps, budget).
			WithContext("steps", r.steps).
			WithContext("paths", r.paths)
	}
	if r.preview < 0 {
		return run{}, xerrors.InvalidInput("preview_paths", r.preview)
	}
	return r, nil
}

func (s *Service) simulate(ctx context.Context, r run) (*sim.PathSet, error) {
	opts := make([]sim.Option, 0, 2)
	if r.seed != nil {
		opts = append(opts, sim.WithSeed(*r.seed))
	}
	if r.workers > 0 {
		opts = append(opts, sim.WithWorkers(r.workers))
	}
	gbm, err := sim.NewGeometricBrownianMotionFromParams(r.params, opts...)
	if err != nil {
		return nil, err
	}

	defer logging.LogDuration(ctx, s.logger, "simulate paths", "paths", r.paths, "steps", r.steps)()
	start := time.Now()
	ps, err := gbm.SimulatePaths(ctx, r.steps, r.paths)
	s.metrics.ObserveSimulation(r.paths, time.Since(start), err)
	if err != nil {
		s.logger.WarnContext(ctx, "simulation failed", "paths", r.paths, "steps", r.steps, "error", err)
		return nil, err
	}
	return ps, nil
}

func (s *Service) summarize(runID string, r run, ps *sim.PathSet, elapsed time.Duration) (SimulationResult, error) {
	stats, err := sim.CalculatePathStatistics(ps)
	if err != nil {
		return SimulationResult{}, err
	}
	indices := sim.SamplePathIndices(ps.Len(), r.preview, ps.Seed)
	return SimulationResult{
		RunID:          runID,
		Params:         r.params,
		Steps:          r.steps,
		Paths:          r.paths,
		Seed:           ps.Seed,
		TimeGrid:       ps.TimeGrid,
		PreviewIndices: indices,
		Preview:        ps.Subset(indices),
		Terminal:       stats,
		ElapsedMs:      millis(elapsed),
	}, nil
}

// Simulate 生成路径并返回预览子集与终值统计。
func (s *Service) Simulate(ctx context.Context, req SimulationRequest) (*SimulationResult, error) {
	start := time.Now()
	r, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	ps, err := s.simulate(ctx, r)
	if err != nil {
		return nil, err
	}
	res, err := s.summarize(idgen.GenRunID(), r, ps, time.Since(start))
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "paths simulated",
		"run_id", res.RunID, "paths", r.paths, "steps", r.steps, "seed", res.Seed, "elapsed_ms", res.ElapsedMs)
	return &res, nil
}

// Analytical 计算 Black-Scholes 价格与希腊字母。
func (s *Service) Analytical(ctx context.Context, req PriceRequest) (*PriceResult, error) {
	ot, err := types.ParseOptionType(req.OptionType)
	if err != nil {
		return nil, err
	}
	params, err := s.Params(req.ModelRequest)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.bsc.Calculate(params, ot)
	s.metrics.ObservePricing("black_scholes", time.Since(start))
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "analytical price computed", "option_type", ot.String(), "price", res.Price)
	return &PriceResult{Method: "black_scholes", Result: res}, nil
}

// Compare 模拟一次路径集，在同一路径集上为看涨与看跌定价，并与解析价比较。
func (s *Service) Compare(ctx context.Context, req SimulationRequest) (*Comparison, error) {
	start := time.Now()
	r, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	// 先算解析价，sigma = 0 等非法输入在模拟前即被拒绝.
	bsStart := time.Now()
	bs, err := s.analyticalPair(r.params)
	s.metrics.ObservePricing("black_scholes", time.Since(bsStart))
	if err != nil {
		return nil, err
	}

	ps, err := s.simulate(ctx, r)
	if err != nil {
		return nil, err
	}

	mcStart := time.Now()
	terminal := ps.Terminal()
	var mc Estimate
	if mc.Call, err = s.mc.PriceTerminal(terminal, r.params.Strike, r.params.Rate, r.params.Maturity, types.OptionTypeCall); err != nil {
		return nil, err
	}
	if mc.Put, err = s.mc.PriceTerminal(terminal, r.params.Strike, r.params.Rate, r.params.Maturity, types.OptionTypePut); err != nil {
		return nil, err
	}
	s.metrics.ObservePricing("monte_carlo", time.Since(mcStart))

	runID := idgen.GenRunID()
	summary, err := s.summarize(runID, r, ps, time.Since(start))
	if err != nil {
		return nil, err
	}

	c := &Comparison{
		SimulationResult: summary,
		MonteCarlo:       mc,
		BlackScholes:     bs,
		Diff:             Estimate{Call: mc.Call - bs.Call, Put: mc.Put - bs.Put},
	}
	c.Table = c.Rows()

	s.metrics.SetAbsDiff("call", math.Abs(c.Diff.Call))
	s.metrics.SetAbsDiff("put", math.Abs(c.Diff.Put))

	s.logger.InfoContext(ctx, "comparison finished",
		"run_id", runID,
		"paths", r.paths,
		"steps", r.steps,
		"seed", ps.Seed,
		"mc_call", mc.Call,
		"bs_call", bs.Call,
		"mc_put", mc.Put,
		"bs_put", bs.Put,
		"elapsed_ms", c.ElapsedMs,
	)
	return c, nil
}

func (s *Service) analyticalPair(p types.ModelParams) (Estimate, error) {
	call, err := s.bsc.Price(p, types.OptionTypeCall)
	if err != nil {
		return Estimate{}, err
	}
	put, err := s.bsc.Price(p, types.OptionTypePut)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{Call: call, Put: put}, nil
}

// Stream 执行一次比较，然后逐时间步推送预览路径的价格，最后推送比较结果。
// emit 返回错误或 ctx 结束时停止推送。
func (s *Service) Stream(ctx context.Context, req SimulationRequest, emit func(frame any) error) error {
	c, err := s.Compare(ctx, req)
	if err != nil {
		return err
	}

	for step, t := range c.TimeGrid {
		if err := ctx.Err(); err != nil {
			return err
		}
		prices := make([]float64, len(c.Preview))
		for i, path := range c.Preview {
			prices[i] = path[step]
		}
		if err := emit(StepFrame{Type: "step", Step: step, T: t, Prices: prices}); err != nil {
			return err
		}
	}
	return emit(SummaryFrame{Type: "summary", Comparison: c})
}
