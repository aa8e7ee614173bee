// Package types 定义定价算法共享的模型参数与期权类型。
package types

import (
	"math"
	"strings"

	"github.com/wyfcoding/optionlab/xerrors"
)

// OptionType 定义期权类型。
type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// ParseOptionType 解析期权类型，大小写不敏感。
// 只接受 call / put，其余取值一律返回 ErrInvalidOptionType，不做静默回退。
func ParseOptionType(s string) (OptionType, error) {
	switch OptionType(strings.ToUpper(strings.TrimSpace(s))) {
	case OptionTypeCall:
		return OptionTypeCall, nil
	case OptionTypePut:
		return OptionTypePut, nil
	default:
		return "", xerrors.ErrInvalidOptionType.Clone().WithContext("option_type", s)
	}
}

// Valid 判断是否为受支持的期权类型。
func (t OptionType) Valid() bool {
	return t == OptionTypeCall || t == OptionTypePut
}

// Validate 校验期权类型。
func (t OptionType) Validate() error {
	if !t.Valid() {
		return xerrors.ErrInvalidOptionType.Clone().WithContext("option_type", string(t))
	}
	return nil
}

// String 返回小写形式，与命令行和 HTTP 接口的取值一致。
func (t OptionType) String() string {
	return strings.ToLower(string(t))
}

// MaxTotalVariance sigma^2 * T 的上限.
// 在此范围内 log(S_t) 的漂移与扩散项量级不超过数百，exp 不会下溢为 0，模拟价格保持严格为正.
// 极端的 S0 或 r*T 仍可能超出 float64 的表示范围，此时结果以浮点语义为准.
const MaxTotalVariance = 100.0

// ModelParams 欧式期权的模型参数，所有组件共享且只读。
type ModelParams struct {
	Spot       float64 `json:"spot"`       // 标的初始价格 S0。
	Strike     float64 `json:"strike"`     // 行权价 K。
	Rate       float64 `json:"rate"`       // 无风险利率 r（连续复利）。
	Volatility float64 `json:"volatility"` // 年化波动率 sigma。
	Maturity   float64 `json:"maturity"`   // 到期时间 T（年）。
}

// Validate 校验参数定义域：S0、K、T 必须为正，sigma 不能为负，所有值必须有限，sigma^2*T 不超过 MaxTotalVariance。
// 解析定价还要求 sigma > 0，由调用方额外检查。
func (p ModelParams) Validate() error {
	if !finite(p.Spot) || p.Spot <= 0 {
		return xerrors.InvalidInput("spot", p.Spot)
	}
	if !finite(p.Strike) || p.Strike <= 0 {
		return xerrors.InvalidInput("strike", p.Strike)
	}
	if !finite(p.Rate) {
		return xerrors.InvalidInput("rate", p.Rate)
	}
	if !finite(p.Volatility) || p.Volatility < 0 {
		return xerrors.InvalidInput("volatility", p.Volatility)
	}
	if !finite(p.Maturity) || p.Maturity <= 0 {
		return xerrors.InvalidInput("maturity", p.Maturity)
	}
	if v := p.Volatility * p.Volatility * p.Maturity; v > MaxTotalVariance {
		return xerrors.ErrInvalidInput.Clone().
			WithDetail("volatility^2 * maturity = %g exceeds %g", v, MaxTotalVariance).
			WithContext("field", "volatility").
			WithContext("value", p.Volatility)
	}
	return nil
}

// DiscountFactor 返回 exp(-rT)。
func (p ModelParams) DiscountFactor() float64 {
	return math.Exp(-p.Rate * p.Maturity)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
