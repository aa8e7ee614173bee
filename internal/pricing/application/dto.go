package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionlab/algorithm/finance"
	"github.com/wyfcoding/optionlab/algorithm/sim"
	"github.com/wyfcoding/optionlab/algorithm/types"
)

// ModelRequest 模型参数，未提供的字段取配置默认值。
type ModelRequest struct {
	Spot       *float64 `json:"spot"`
	Strike     *float64 `json:"strike"`
	Rate       *float64 `json:"rate"`
	Volatility *float64 `json:"volatility"`
	Maturity   *float64 `json:"maturity"`
}

// SimulationRequest 模拟与比较请求。
type SimulationRequest struct {
	ModelRequest
	Steps        *int    `json:"steps"`
	Paths        *int    `json:"paths"`
	Seed         *uint64 `json:"seed"`
	PreviewPaths *int    `json:"preview_paths"`
}

// PriceRequest 解析定价请求。
type PriceRequest struct {
	ModelRequest
	OptionType string `json:"option_type" binding:"required"`
}

// Estimate 一种定价方法下的看涨与看跌价格。
type Estimate struct {
	Call float64 `json:"call"`
	Put  float64 `json:"put"`
}

// Row 比较表中的一行，价格保留 4 位小数。
type Row struct {
	Method string          `json:"method"`
	Call   decimal.Decimal `json:"call"`
	Put    decimal.Decimal `json:"put"`
}

// SimulationResult 一次路径模拟的摘要，只携带预览路径。
type SimulationResult struct {
	RunID          string             `json:"run_id"`
	Params         types.ModelParams  `json:"params"`
	Steps          int                `json:"steps"`
	Paths          int                `json:"paths"`
	Seed           uint64             `json:"seed"`
	TimeGrid       []float64          `json:"time_grid"`
	PreviewIndices []int              `json:"preview_indices"`
	Preview        [][]float64        `json:"preview"`
	Terminal       sim.PathStatistics `json:"terminal"`
	ElapsedMs      float64            `json:"elapsed_ms"`
}

// Comparison 蒙特卡洛与 Black-Scholes 的比较结果，Diff = MonteCarlo - BlackScholes。
type Comparison struct {
	SimulationResult
	MonteCarlo   Estimate `json:"monte_carlo"`
	BlackScholes Estimate `json:"black_scholes"`
	Diff         Estimate `json:"diff"`
	Table        []Row    `json:"table"`
}

// Rows 返回 "Method | Call | Put" 两行表格。
func (c *Comparison) Rows() []Row {
	return []Row{
		{Method: "Monte Carlo", Call: round4(c.MonteCarlo.Call), Put: round4(c.MonteCarlo.Put)},
		{Method: "Black-Scholes", Call: round4(c.BlackScholes.Call), Put: round4(c.BlackScholes.Put)},
	}
}

// PriceResult 解析定价结果。
type PriceResult struct {
	Method string                     `json:"method"`
	Result *finance.BlackScholesResult `json:"result"`
}

// StepFrame 流式推送的单个时间步，Prices 与 PreviewIndices 一一对应。
type StepFrame struct {
	Type   string    `json:"type"`
	Step   int       `json:"step"`
	T      float64   `json:"t"`
	Prices []float64 `json:"prices"`
}

// SummaryFrame 流式推送的最后一帧。
type SummaryFrame struct {
	Type       string      `json:"type"`
	Comparison *Comparison `json:"comparison"`
}

func round4(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(4)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
