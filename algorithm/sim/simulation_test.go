package sim

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/wyfcoding/optionlab/algorithm/finance"
	"github.com/wyfcoding/optionlab/algorithm/types"
	"github.com/wyfcoding/optionlab/xerrors"
)

var reference = types.ModelParams{Spot: 100, Strike: 100, Rate: 0.05, Volatility: 0.2, Maturity: 1}

func newReferenceGBM(t *testing.T, opts ...Option) *GeometricBrownianMotion {
	t.Helper()
	gbm, err := NewGeometricBrownianMotionFromParams(reference, opts...)
	if err != nil {
		t.Fatalf("NewGeometricBrownianMotion: %v", err)
	}
	return gbm
}

func TestTimeGrid(t *testing.T) {
	grid, err := TimeGrid(1.5, 6)
	if err != nil {
		t.Fatalf("TimeGrid: %v", err)
	}
	if len(grid) != 7 {
		t.Fatalf("len = %d, want 7", len(grid))
	}
	if grid[0] != 0 || grid[6] != 1.5 {
		t.Errorf("endpoints = %v, %v", grid[0], grid[6])
	}
	for j := 1; j < len(grid); j++ {
		if d := grid[j] - grid[j-1]; math.Abs(d-0.25) > 1e-12 {
			t.Errorf("step %d spacing = %v, want 0.25", j, d)
		}
	}

	if _, err := TimeGrid(1, 0); !errors.Is(err, xerrors.ErrInvalidSteps) {
		t.Errorf("steps=0 err = %v", err)
	}
	if _, err := TimeGrid(0, 10); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("maturity=0 err = %v", err)
	}
}

func TestSimulatePathsShapeAndPositivity(t *testing.T) {
	cases := []struct {
		params types.ModelParams
		steps  int
		paths  int
	}{
		{reference, 252, 200},
		{types.ModelParams{Spot: 42, Strike: 1, Rate: -0.02, Volatility: 0.9, Maturity: 2}, 10, 150},
		{types.ModelParams{Spot: 0.5, Strike: 1, Rate: 0.1, Volatility: 0.05, Maturity: 0.1}, 3, 7},
		{reference, 1, 1},
	}
	for _, c := range cases {
		gbm, err := NewGeometricBrownianMotionFromParams(c.params, WithSeed(11))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		ps, err := gbm.SimulatePaths(context.Background(), c.steps, c.paths)
		if err != nil {
			t.Fatalf("simulate: %v", err)
		}
		if ps.Len() != c.paths || ps.Steps() != c.steps {
			t.Fatalf("shape = %dx%d, want %dx%d", ps.Len(), ps.Steps(), c.paths, c.steps)
		}
		if len(ps.TimeGrid) != c.steps+1 {
			t.Errorf("time grid len = %d", len(ps.TimeGrid))
		}
		for i, path := range ps.Paths {
			if len(path) != c.steps+1 {
				t.Fatalf("path %d len = %d", i, len(path))
			}
			if path[0] != c.params.Spot {
				t.Errorf("path %d starts at %v, want %v", i, path[0], c.params.Spot)
			}
			for j, v := range path {
				if !(v > 0) || math.IsInf(v, 0) {
					t.Fatalf("path %d step %d = %v, want strictly positive", i, j, v)
				}
			}
		}
	}
}

func TestSimulatePathsPositiveAtVarianceLimit(t *testing.T) {
	p := reference
	p.Volatility = math.Sqrt(types.MaxTotalVariance / p.Maturity)
	gbm, err := NewGeometricBrownianMotionFromParams(p, WithSeed(17))
	if err != nil {
		t.Fatalf("variance at the limit must be accepted: %v", err)
	}
	ps, err := gbm.SimulatePaths(context.Background(), 50, 2000)
	if err != nil {
		t.Fatal(err)
	}
	for i, path := range ps.Paths {
		for j, v := range path {
			if !(v > 0) || math.IsInf(v, 0) {
				t.Fatalf("path %d step %d = %v, want strictly positive", i, j, v)
			}
		}
	}

	p.Volatility *= 1.01
	if _, err := NewGeometricBrownianMotionFromParams(p); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("variance above the limit: err = %v, want ErrInvalidInput", err)
	}
}

func TestSimulatePathsReproducible(t *testing.T) {
	ctx := context.Background()
	a, err := newReferenceGBM(t, WithSeed(2024)).SimulatePaths(ctx, 50, 300)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newReferenceGBM(t, WithSeed(2024)).SimulatePaths(ctx, 50, 300)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Paths {
		if !slices.Equal(a.Paths[i], b.Paths[i]) {
			t.Fatalf("path %d differs between identical seeds", i)
		}
	}

	c, err := newReferenceGBM(t, WithSeed(2025)).SimulatePaths(ctx, 50, 300)
	if err != nil {
		t.Fatal(err)
	}
	if slices.Equal(a.Paths[0], c.Paths[0]) {
		t.Errorf("different seeds produced the same first path")
	}
	if a.Seed != 2024 {
		t.Errorf("PathSet.Seed = %d", a.Seed)
	}
}

func TestSimulatePathsIndependentOfWorkers(t *testing.T) {
	ctx := context.Background()
	serial, err := newReferenceGBM(t, WithSeed(99), WithWorkers(1)).SimulatePaths(ctx, 20, 1000)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := newReferenceGBM(t, WithSeed(99), WithWorkers(8)).SimulatePaths(ctx, 20, 1000)
	if err != nil {
		t.Fatal(err)
	}
	for i := range serial.Paths {
		if !slices.Equal(serial.Paths[i], parallel.Paths[i]) {
			t.Fatalf("path %d depends on worker count", i)
		}
	}
}

func TestSimulatePathsZeroVolatilityIsDeterministic(t *testing.T) {
	p := reference
	p.Volatility = 0
	gbm, err := NewGeometricBrownianMotionFromParams(p, WithSeed(1))
	if err != nil {
		t.Fatal(err)
	}
	ps, err := gbm.SimulatePaths(context.Background(), 4, 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, path := range ps.Paths {
		for j, v := range path {
			want := p.Spot * math.Exp(p.Rate*ps.TimeGrid[j])
			if math.Abs(v-want) > 1e-9 {
				t.Errorf("step %d = %v, want %v", j, v, want)
			}
		}
	}
}

func TestSimulatePathsValidation(t *testing.T) {
	gbm := newReferenceGBM(t, WithSeed(1))
	ctx := context.Background()
	if _, err := gbm.SimulatePaths(ctx, 0, 10); !errors.Is(err, xerrors.ErrInvalidSteps) {
		t.Errorf("steps=0 err = %v", err)
	}
	if _, err := gbm.SimulatePaths(ctx, -5, 10); !errors.Is(err, xerrors.ErrInvalidSteps) {
		t.Errorf("steps<0 err = %v", err)
	}
	if _, err := gbm.SimulatePaths(ctx, 10, 0); !errors.Is(err, xerrors.ErrInvalidPaths) {
		t.Errorf("paths=0 err = %v", err)
	}

	bad := []struct {
		name                 string
		spot, rate, vol, mat float64
	}{
		{"zero spot", 0, 0.05, 0.2, 1},
		{"negative vol", 100, 0.05, -0.2, 1},
		{"zero maturity", 100, 0.05, 0.2, 0},
		{"negative maturity", 100, 0.05, 0.2, -1},
		{"nan rate", 100, math.NaN(), 0.2, 1},
	}
	for _, c := range bad {
		if _, err := NewGeometricBrownianMotion(c.spot, c.rate, c.vol, c.mat); !errors.Is(err, xerrors.ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", c.name, err)
		}
	}
}

func TestSimulatePathsRejectsOversizedRequests(t *testing.T) {
	gbm := newReferenceGBM(t, WithSeed(1))
	ctx := context.Background()
	cases := []struct {
		name         string
		steps, paths int
	}{
		{"steps near MaxInt", math.MaxInt / 2, 2},
		{"steps+1 overflows", math.MaxInt, 1},
		{"product overflows", math.MaxInt32, math.MaxInt32},
		{"product above MaxPoints", MaxPoints / 4, 8},
	}
	for _, c := range cases {
		ps, err := gbm.SimulatePaths(ctx, c.steps, c.paths)
		if !errors.Is(err, xerrors.ErrInvalidSteps) {
			t.Errorf("%s: err = %v, want ErrInvalidSteps", c.name, err)
		}
		if ps != nil {
			t.Errorf("%s: expected no path set", c.name)
		}
	}

	if _, err := TimeGrid(1, math.MaxInt); !errors.Is(err, xerrors.ErrInvalidSteps) {
		t.Errorf("TimeGrid(MaxInt) err = %v, want ErrInvalidSteps", err)
	}
}

func TestSimulatePathsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newReferenceGBM(t, WithSeed(3)).SimulatePaths(ctx, 10, 500)
	if !errors.Is(err, xerrors.ErrSimulationCanceled) {
		t.Fatalf("err = %v, want ErrSimulationCanceled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cause should be context.Canceled, got %v", err)
	}
}

func TestDefaultSeedIsExposed(t *testing.T) {
	gbm := newReferenceGBM(t)
	ps, err := gbm.SimulatePaths(context.Background(), 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	replay, err := newReferenceGBM(t, WithSeed(gbm.Seed())).SimulatePaths(context.Background(), 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	for i := range ps.Paths {
		if !slices.Equal(ps.Paths[i], replay.Paths[i]) {
			t.Fatalf("replaying the exposed seed must reproduce path %d", i)
		}
	}
}

func TestMonteCarloConvergesToBlackScholes(t *testing.T) {
	if testing.Short() {
		t.Skip("convergence run skipped in short mode")
	}
	ctx := context.Background()
	mc := NewMonteCarlo()
	bsc := finance.NewBlackScholesCalculator()

	for _, ot := range []types.OptionType{types.OptionTypeCall, types.OptionTypePut} {
		exact, err := bsc.Price(reference, ot)
		if err != nil {
			t.Fatal(err)
		}

		// 终值分布与步数无关，单步即可.
		var smallErr float64
		const seeds = 20
		for seed := range uint64(seeds) {
			ps, err := newReferenceGBM(t, WithSeed(seed)).SimulatePaths(ctx, 1, 100)
			if err != nil {
				t.Fatal(err)
			}
			est, err := mc.Price(ps, reference.Strike, reference.Rate, reference.Maturity, ot)
			if err != nil {
				t.Fatal(err)
			}
			smallErr += math.Abs(est - exact)
		}
		smallErr /= seeds

		ps, err := newReferenceGBM(t, WithSeed(7)).SimulatePaths(ctx, 1, 100_000)
		if err != nil {
			t.Fatal(err)
		}
		est, err := mc.Price(ps, reference.Strike, reference.Rate, reference.Maturity, ot)
		if err != nil {
			t.Fatal(err)
		}
		largeErr := math.Abs(est - exact)

		if largeErr > 0.25 {
			t.Errorf("%s: |MC-BS| with 100k paths = %v (mc=%v bs=%v)", ot, largeErr, est, exact)
		}
		if largeErr >= smallErr {
			t.Errorf("%s: error did not shrink: 100 paths %v, 100k paths %v", ot, smallErr, largeErr)
		}

		again, err := newReferenceGBM(t, WithSeed(7)).SimulatePaths(ctx, 1, 100_000)
		if err != nil {
			t.Fatal(err)
		}
		repeat, _ := mc.Price(again, reference.Strike, reference.Rate, reference.Maturity, ot)
		if repeat != est {
			t.Errorf("%s: fixed seed not reproducible: %v vs %v", ot, est, repeat)
		}
	}
}
