// Package finance - 期权定价算法（Black-Scholes 模型）。
package finance

import (
	"math"

	"github.com/wyfcoding/optionlab/algorithm/types"
	"github.com/wyfcoding/optionlab/xerrors"
	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholesCalculator Black-Scholes 期权定价计算器。
type BlackScholesCalculator struct{}

// NewBlackScholesCalculator 创建 Black-Scholes 计算器。
func NewBlackScholesCalculator() *BlackScholesCalculator {
	return &BlackScholesCalculator{}
}

// BlackScholesResult 包含计算出的期权价格及其希腊字母。
type BlackScholesResult struct {
	OptionType types.OptionType `json:"option_type"`
	Price      float64          `json:"price"`
	Delta      float64          `json:"delta"`
	Gamma      float64          `json:"gamma"`
	Vega       float64          `json:"vega"`  // 波动率变动 1% 的价格变化。
	Theta      float64          `json:"theta"` // 每日 theta。
	Rho        float64          `json:"rho"`   // 利率变动 1% 的价格变化。
}

// validate 解析公式要求 sigma > 0 且 T > 0，否则 sigma*sqrt(T) 为零导致除零。
func validate(p types.ModelParams, optionType types.OptionType) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Volatility <= 0 {
		return xerrors.InvalidInput("volatility", p.Volatility)
	}
	return optionType.Validate()
}

func d1d2(p types.ModelParams) (d1, d2 float64) {
	volSqrtT := p.Volatility * math.Sqrt(p.Maturity)
	d1 = (math.Log(p.Spot/p.Strike) + (p.Rate+0.5*p.Volatility*p.Volatility)*p.Maturity) / volSqrtT
	d2 = d1 - volSqrtT
	return d1, d2
}

// Price 计算欧式期权的 Black-Scholes 解析价格。
func (bsc *BlackScholesCalculator) Price(p types.ModelParams, optionType types.OptionType) (float64, error) {
	if err := validate(p, optionType); err != nil {
		return 0, err
	}
	d1, d2 := d1d2(p)
	discountedStrike := p.Strike * p.DiscountFactor()
	if optionType == types.OptionTypeCall {
		return p.Spot*normCDF(d1) - discountedStrike*normCDF(d2), nil
	}
	return discountedStrike*normCDF(-d2) - p.Spot*normCDF(-d1), nil
}

// CalculateCallPrice 计算看涨期权价格。
func (bsc *BlackScholesCalculator) CalculateCallPrice(p types.ModelParams) (float64, error) {
	return bsc.Price(p, types.OptionTypeCall)
}

// CalculatePutPrice 计算看跌期权价格。
func (bsc *BlackScholesCalculator) CalculatePutPrice(p types.ModelParams) (float64, error) {
	return bsc.Price(p, types.OptionTypePut)
}

// Calculate 一次性计算期权价格及所有希腊字母。
func (bsc *BlackScholesCalculator) Calculate(p types.ModelParams, optionType types.OptionType) (*BlackScholesResult, error) {
	if err := validate(p, optionType); err != nil {
		return nil, err
	}

	s, k, t, r, sigma := p.Spot, p.Strike, p.Maturity, p.Rate, p.Volatility
	d1, d2 := d1d2(p)
	sqrtT := math.Sqrt(t)
	expRT := p.DiscountFactor()
	phiD1 := normPDF(d1)

	res := &BlackScholesResult{OptionType: optionType}
	if optionType == types.OptionTypeCall {
		res.Price = s*normCDF(d1) - k*expRT*normCDF(d2)
		res.Delta = normCDF(d1)
		res.Theta = (-s*phiD1*sigma/(2*sqrtT) - r*k*expRT*normCDF(d2)) / 365
		res.Rho = k * t * expRT * normCDF(d2) / 100
	} else {
		res.Price = k*expRT*normCDF(-d2) - s*normCDF(-d1)
		res.Delta = normCDF(d1) - 1
		res.Theta = (-s*phiD1*sigma/(2*sqrtT) + r*k*expRT*normCDF(-d2)) / 365
		res.Rho = -k * t * expRT * normCDF(-d2) / 100
	}
	res.Gamma = phiD1 / (s * sigma * sqrtT)
	res.Vega = s * phiD1 * sqrtT / 100

	return res, nil
}

// DiscountedIntrinsic 返回 sigma -> 0+ 时的极限价格：max(S0 - K e^{-rT}, 0)（看涨）。
func DiscountedIntrinsic(p types.ModelParams, optionType types.OptionType) float64 {
	forwardGap := p.Spot - p.Strike*p.DiscountFactor()
	if optionType == types.OptionTypeCall {
		return math.Max(forwardGap, 0)
	}
	return math.Max(-forwardGap, 0)
}

func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

func normPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}
