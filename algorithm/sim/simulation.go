// Package sim - 几何布朗运动路径模拟与蒙特卡洛定价.
package sim

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/binary"
	"math"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/wyfcoding/optionlab/algorithm/types"
	"github.com/wyfcoding/optionlab/xerrors"
	"golang.org/x/exp/rand"
)

// parallelThreshold 路径数低于该值时串行模拟，避免调度开销.
const parallelThreshold = 100

// MaxPoints 单次模拟允许的数据点上限 paths × (steps+1)，保证切片长度不溢出也不超过运行时的分配上限.
// 实际可用内存通常远小于该值，服务端应在此之前按自身预算拒绝请求.
const MaxPoints = min(math.MaxInt/8, 1<<40)

// GeometricBrownianMotion 几何布朗运动模拟.
type GeometricBrownianMotion struct {
	spot       float64 // 初始价格 S0.
	rate       float64 // 风险中性漂移 r.
	volatility float64 // 波动率 sigma.
	maturity   float64 // 到期时间 T.
	seed       uint64
	workers    int
}

// Option 定义 GBM 模拟器的配置选项.
type Option func(*GeometricBrownianMotion)

// WithSeed 指定随机种子，相同种子与参数产生完全相同的路径.
func WithSeed(seed uint64) Option {
	return func(g *GeometricBrownianMotion) {
		g.seed = seed
	}
}

// WithWorkers 限制并行模拟的最大协程数.
func WithWorkers(n int) Option {
	return func(g *GeometricBrownianMotion) {
		g.workers = n
	}
}

// NewGeometricBrownianMotion 创建 GBM 模拟.
// 未指定种子时从 crypto/rand 取一个，可通过 Seed() 读出以便复现.
func NewGeometricBrownianMotion(spot, rate, volatility, maturity float64, opts ...Option) (*GeometricBrownianMotion, error) {
	// 行权价不参与模拟，借用一个合法值完成其余字段的定义域校验.
	params := types.ModelParams{Spot: spot, Strike: 1, Rate: rate, Volatility: volatility, Maturity: maturity}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	gbm := &GeometricBrownianMotion{
		spot:       spot,
		rate:       rate,
		volatility: volatility,
		maturity:   maturity,
		seed:       randomSeed(),
		workers:    runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(gbm)
	}
	if gbm.workers <= 0 {
		gbm.workers = 1
	}
	return gbm, nil
}

// NewGeometricBrownianMotionFromParams 使用 ModelParams 创建 GBM 模拟.
func NewGeometricBrownianMotionFromParams(p types.ModelParams, opts ...Option) (*GeometricBrownianMotion, error) {
	return NewGeometricBrownianMotion(p.Spot, p.Rate, p.Volatility, p.Maturity, opts...)
}

// Seed 返回本模拟器使用的随机种子.
func (gbm *GeometricBrownianMotion) Seed() uint64 {
	return gbm.seed
}

func randomSeed() uint64 {
	var b [8]byte
	if _, err := crypto_rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// TimeGrid 返回 [0, T] 上 steps+1 个等距时间点，首尾分别精确为 0 和 T.
func TimeGrid(maturity float64, steps int) ([]float64, error) {
	if steps <= 0 || steps >= MaxPoints {
		return nil, xerrors.ErrInvalidSteps.Clone().WithContext("steps", steps)
	}
	if math.IsNaN(maturity) || math.IsInf(maturity, 0) || maturity <= 0 {
		return nil, xerrors.InvalidInput("maturity", maturity)
	}
	dt := maturity / float64(steps)
	grid := make([]float64, steps+1)
	for j := 1; j < steps; j++ {
		grid[j] = float64(j) * dt
	}
	grid[steps] = maturity
	return grid, nil
}

// PathSet 一次模拟产生的全部路径及其时间网格，生成后只读.
type PathSet struct {
	TimeGrid []float64   `json:"time_grid"`
	Paths    [][]float64 `json:"paths"` // n_paths × (steps+1)，Paths[i][0] == S0.
	Seed     uint64      `json:"seed"`
}

// Len 返回路径条数.
func (ps *PathSet) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.Paths)
}

// Steps 返回每条路径的时间步数.
func (ps *PathSet) Steps() int {
	if ps == nil || len(ps.TimeGrid) == 0 {
		return 0
	}
	return len(ps.TimeGrid) - 1
}

// Terminal 返回每条路径的终值 S_T（最后一列）.
func (ps *PathSet) Terminal() []float64 {
	if ps.Len() == 0 {
		return nil
	}
	out := make([]float64, len(ps.Paths))
	for i, path := range ps.Paths {
		out[i] = path[len(path)-1]
	}
	return out
}

// Subset 返回指定下标的路径视图，不复制数据.
func (ps *PathSet) Subset(indices []int) [][]float64 {
	out := make([][]float64, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < ps.Len() {
			out = append(out, ps.Paths[idx])
		}
	}
	return out
}

// SimulatePaths 模拟 nPaths 条长度为 steps+1 的价格路径.
// 每条路径 i 拥有由 (seed, i) 派生的独立随机流，因此结果与并发度无关.
func (gbm *GeometricBrownianMotion) SimulatePaths(ctx context.Context, steps, nPaths int) (*PathSet, error) {
	if nPaths <= 0 {
		return nil, xerrors.ErrInvalidPaths.Clone().WithContext("paths", nPaths)
	}
	// 先于任何分配检查规模，steps+1 与 nPaths*(steps+1) 都不会溢出.
	if steps >= MaxPoints/nPaths {
		return nil, xerrors.ErrInvalidSteps.Clone().
			WithDetail("paths %d x (steps %d + 1) exceeds %d points", nPaths, steps, MaxPoints).
			WithContext("steps", steps).
			WithContext("paths", nPaths)
	}
	grid, err := TimeGrid(gbm.maturity, steps)
	if err != nil {
		return nil, err
	}

	width := steps + 1
	backing := make([]float64, nPaths*width)
	paths := make([][]float64, nPaths)
	for i := range paths {
		paths[i] = backing[i*width : (i+1)*width : (i+1)*width]
	}

	workers := gbm.workers
	if nPaths < parallelThreshold {
		workers = 1
	}
	// 每个任务处理一段连续路径，任务数取并发度的数倍以平衡负载.
	chunk := max(1, nPaths/(workers*4))

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError()
	for start := 0; start < nPaths; start += chunk {
		end := min(start+chunk, nPaths)
		p.Go(func(ctx context.Context) error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				gbm.fillPath(paths[i], grid, gbm.pathSource(i))
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, xerrors.ErrSimulationCanceled.Clone().WithCause(err).WithContext("paths", nPaths)
	}

	return &PathSet{TimeGrid: grid, Paths: paths, Seed: gbm.seed}, nil
}

// pathSource 为第 i 条路径派生独立的随机源.
func (gbm *GeometricBrownianMotion) pathSource(i int) *rand.Rand {
	const golden = 0x9E3779B97F4A7C15
	return rand.New(rand.NewSource(splitMix64(gbm.seed + golden*uint64(i+1))))
}

// fillPath 按 W = cumsum(Z)*sqrt(dt)、X = (r - sigma^2/2)t + sigma*W 生成一条路径.
func (gbm *GeometricBrownianMotion) fillPath(row, grid []float64, rnd *rand.Rand) {
	steps := len(grid) - 1
	sqrtDt := math.Sqrt(gbm.maturity / float64(steps))
	drift := gbm.rate - 0.5*gbm.volatility*gbm.volatility

	row[0] = gbm.spot
	cum := 0.0
	for j := 1; j <= steps; j++ {
		cum += rnd.NormFloat64()
		w := cum * sqrtDt
		row[j] = gbm.spot * math.Exp(drift*grid[j]+gbm.volatility*w)
	}
}

func splitMix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}
