package sim

import (
	"math"

	"github.com/wyfcoding/optionlab/algorithm/types"
	"github.com/wyfcoding/optionlab/xerrors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MonteCarlo 蒙特卡洛定价器，基于已模拟好的路径估计折现期望收益.
type MonteCarlo struct{}

// NewMonteCarlo 创建蒙特卡洛定价器.
func NewMonteCarlo() *MonteCarlo {
	return &MonteCarlo{}
}

// Price 使用路径终值计算欧式期权价格：exp(-rT) * mean(payoff).
// 不修改 paths.
func (mc *MonteCarlo) Price(paths *PathSet, strike, rate, maturity float64, optionType types.OptionType) (float64, error) {
	if paths.Len() == 0 {
		return 0, xerrors.ErrEmptyData.Clone().WithContext("paths", 0)
	}
	return mc.PriceTerminal(paths.Terminal(), strike, rate, maturity, optionType)
}

// PriceTerminal 与 Price 相同，但直接接收终值切片.
func (mc *MonteCarlo) PriceTerminal(terminal []float64, strike, rate, maturity float64, optionType types.OptionType) (float64, error) {
	if len(terminal) == 0 {
		return 0, xerrors.ErrEmptyData.Clone().WithContext("paths", 0)
	}
	if math.IsNaN(strike) || math.IsInf(strike, 0) || strike <= 0 {
		return 0, xerrors.InvalidInput("strike", strike)
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, xerrors.InvalidInput("rate", rate)
	}
	if math.IsNaN(maturity) || math.IsInf(maturity, 0) || maturity <= 0 {
		return 0, xerrors.InvalidInput("maturity", maturity)
	}
	if err := optionType.Validate(); err != nil {
		return 0, err
	}

	payoffs := make([]float64, len(terminal))
	for i, st := range terminal {
		payoffs[i] = Payoff(st, strike, optionType)
	}

	return math.Exp(-rate*maturity) * stat.Mean(payoffs, nil), nil
}

// Payoff 单条路径的到期收益，看涨 max(S_T-K, 0)，看跌 max(K-S_T, 0).
// 未知类型返回 0，调用方需先校验.
func Payoff(terminal, strike float64, optionType types.OptionType) float64 {
	switch optionType {
	case types.OptionTypeCall:
		return math.Max(terminal-strike, 0)
	case types.OptionTypePut:
		return math.Max(strike-terminal, 0)
	default:
		return 0
	}
}

// PathStatistics 路径终值的统计量.
type PathStatistics struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"` // 样本标准差，单条路径时为 0.
}

// CalculatePathStatistics 计算路径终值统计.
func CalculatePathStatistics(paths *PathSet) (PathStatistics, error) {
	if paths.Len() == 0 {
		return PathStatistics{}, xerrors.ErrEmptyData.Clone().WithContext("paths", 0)
	}

	terminal := paths.Terminal()
	stats := PathStatistics{
		Min: floats.Min(terminal),
		Max: floats.Max(terminal),
	}
	if len(terminal) < 2 {
		stats.Mean = terminal[0]
		return stats, nil
	}
	stats.Mean, stats.StdDev = stat.MeanStdDev(terminal, nil)
	return stats, nil
}
