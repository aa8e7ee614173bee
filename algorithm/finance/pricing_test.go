package finance

import (
	"errors"
	"math"
	"testing"

	"github.com/wyfcoding/optionlab/algorithm/types"
	"github.com/wyfcoding/optionlab/xerrors"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

var reference = types.ModelParams{Spot: 100, Strike: 100, Rate: 0.05, Volatility: 0.2, Maturity: 1}

func TestBlackScholesReferenceCase(t *testing.T) {
	bsc := NewBlackScholesCalculator()

	call, err := bsc.Price(reference, types.OptionTypeCall)
	if err != nil {
		t.Fatalf("call err: %v", err)
	}
	put, err := bsc.Price(reference, types.OptionTypePut)
	if err != nil {
		t.Fatalf("put err: %v", err)
	}

	if !almostEqual(call, 10.450583572185565, 1e-9) {
		t.Errorf("call price = %v, want 10.4506", call)
	}
	if !almostEqual(put, 5.573526022256971, 1e-9) {
		t.Errorf("put price = %v, want 5.5735", put)
	}

	c2, _ := bsc.CalculateCallPrice(reference)
	p2, _ := bsc.CalculatePutPrice(reference)
	if c2 != call || p2 != put {
		t.Errorf("shortcut methods disagree: %v/%v vs %v/%v", c2, p2, call, put)
	}
}

func TestBlackScholesPutCallParity(t *testing.T) {
	bsc := NewBlackScholesCalculator()
	cases := []types.ModelParams{
		reference,
		{Spot: 50, Strike: 80, Rate: 0.01, Volatility: 0.45, Maturity: 0.25},
		{Spot: 250, Strike: 180, Rate: 0.08, Volatility: 0.1, Maturity: 3},
		{Spot: 100, Strike: 105, Rate: -0.005, Volatility: 0.6, Maturity: 0.01},
		{Spot: 1, Strike: 1000, Rate: 0.03, Volatility: 1.5, Maturity: 10},
	}
	for _, p := range cases {
		call, err := bsc.Price(p, types.OptionTypeCall)
		if err != nil {
			t.Fatalf("call err: %v", err)
		}
		put, err := bsc.Price(p, types.OptionTypePut)
		if err != nil {
			t.Fatalf("put err: %v", err)
		}
		left := call - put
		right := p.Spot - p.Strike*math.Exp(-p.Rate*p.Maturity)
		if !almostEqual(left, right, 1e-9*math.Max(1, p.Strike)) {
			t.Errorf("%+v: parity mismatch left=%v right=%v", p, left, right)
		}
	}
}

func TestBlackScholesSmallVolatilityLimit(t *testing.T) {
	bsc := NewBlackScholesCalculator()
	for _, strike := range []float64{80, 100, 104, 120} {
		p := reference
		p.Strike = strike
		p.Volatility = 1e-8

		call, err := bsc.Price(p, types.OptionTypeCall)
		if err != nil {
			t.Fatalf("call err: %v", err)
		}
		want := math.Max(p.Spot-p.Strike*math.Exp(-p.Rate*p.Maturity), 0)
		if !almostEqual(call, want, 1e-6) {
			t.Errorf("K=%v: call = %v, want discounted intrinsic %v", strike, call, want)
		}
		if got := DiscountedIntrinsic(p, types.OptionTypeCall); !almostEqual(got, want, 1e-12) {
			t.Errorf("DiscountedIntrinsic = %v, want %v", got, want)
		}

		put, _ := bsc.Price(p, types.OptionTypePut)
		if got := DiscountedIntrinsic(p, types.OptionTypePut); !almostEqual(put, got, 1e-6) {
			t.Errorf("K=%v: put = %v, want %v", strike, put, got)
		}
	}
}

func TestBlackScholesInvalidInputs(t *testing.T) {
	bsc := NewBlackScholesCalculator()
	cases := []struct {
		name string
		p    types.ModelParams
	}{
		{"zero sigma", types.ModelParams{Spot: 100, Strike: 100, Rate: 0.05, Volatility: 0, Maturity: 1}},
		{"zero maturity", types.ModelParams{Spot: 100, Strike: 100, Rate: 0.05, Volatility: 0.2, Maturity: 0}},
		{"negative spot", types.ModelParams{Spot: -1, Strike: 100, Rate: 0.05, Volatility: 0.2, Maturity: 1}},
		{"zero strike", types.ModelParams{Spot: 100, Strike: 0, Rate: 0.05, Volatility: 0.2, Maturity: 1}},
	}
	for _, c := range cases {
		price, err := bsc.Price(c.p, types.OptionTypeCall)
		if !errors.Is(err, xerrors.ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", c.name, err)
		}
		if math.IsNaN(price) || math.IsInf(price, 0) {
			t.Errorf("%s: leaked non-finite price %v", c.name, price)
		}
		if _, err := bsc.Calculate(c.p, types.OptionTypePut); !errors.Is(err, xerrors.ErrInvalidInput) {
			t.Errorf("%s: Calculate err = %v", c.name, err)
		}
	}
}

func TestBlackScholesRejectsUnknownOptionType(t *testing.T) {
	bsc := NewBlackScholesCalculator()
	if _, err := bsc.Price(reference, types.OptionType("STRADDLE")); !errors.Is(err, xerrors.ErrInvalidOptionType) {
		t.Errorf("Price err = %v, want ErrInvalidOptionType", err)
	}
	if _, err := bsc.Calculate(reference, types.OptionType("")); !errors.Is(err, xerrors.ErrInvalidOptionType) {
		t.Errorf("Calculate err = %v, want ErrInvalidOptionType", err)
	}
}

func TestBlackScholesGreeks(t *testing.T) {
	bsc := NewBlackScholesCalculator()
	call, err := bsc.Calculate(reference, types.OptionTypeCall)
	if err != nil {
		t.Fatalf("call err: %v", err)
	}
	put, err := bsc.Calculate(reference, types.OptionTypePut)
	if err != nil {
		t.Fatalf("put err: %v", err)
	}

	if !almostEqual(call.Price, 10.450583572185565, 1e-9) {
		t.Errorf("Calculate price = %v", call.Price)
	}
	if !almostEqual(call.Delta-put.Delta, 1, 1e-12) {
		t.Errorf("delta parity: call %v put %v", call.Delta, put.Delta)
	}
	if !almostEqual(call.Delta, 0.6368306511756191, 1e-9) {
		t.Errorf("call delta = %v", call.Delta)
	}
	if call.Gamma != put.Gamma || call.Vega != put.Vega {
		t.Errorf("gamma/vega must not depend on option type")
	}
	if !almostEqual(call.Gamma, 0.018762017345846895, 1e-9) {
		t.Errorf("gamma = %v", call.Gamma)
	}
	if call.Theta >= 0 {
		t.Errorf("call theta should be negative, got %v", call.Theta)
	}
	if call.Rho <= 0 || put.Rho >= 0 {
		t.Errorf("rho signs: call %v put %v", call.Rho, put.Rho)
	}

	// 有限差分验证 delta。
	const h = 1e-4
	up, down := reference, reference
	up.Spot += h
	down.Spot -= h
	pu, _ := bsc.Price(up, types.OptionTypeCall)
	pd, _ := bsc.Price(down, types.OptionTypeCall)
	if fd := (pu - pd) / (2 * h); !almostEqual(fd, call.Delta, 1e-6) {
		t.Errorf("finite difference delta %v vs analytic %v", fd, call.Delta)
	}
}
