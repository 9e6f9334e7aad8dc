package finance

import (
	"math"
	"runtime"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"github.com/wyfcoding/quant/algorithm/sim"
	"github.com/wyfcoding/quant/xerrors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Status 优化结果状态.
type Status string

const (
	// StatusConverged 投影梯度已小于容差.
	StatusConverged Status = "converged"
	// StatusNotConverged 迭代耗尽或线搜索失败.
	StatusNotConverged Status = "not_converged"
)

const (
	armijoC     = 1e-4
	minStepSize = 1e-12
	maxStepSize = 1e6
)

// ExplorationPoint 探索阶段的一个随机组合.
type ExplorationPoint struct {
	Weights    WeightVector        `json:"weights"`
	Statistics PortfolioStatistics `json:"statistics"`
}

// OptimizationResult 最大夏普组合.
type OptimizationResult struct {
	Weights    WeightVector        `json:"weights"`
	Statistics PortfolioStatistics `json:"statistics"`
	Status     Status              `json:"status"`
	Iterations int                 `json:"iterations"`
}

// Rounded 返回四舍五入到 places 位小数的权重，仅用于展示.
func (r *OptimizationResult) Rounded(places int32) WeightVector {
	out := make(WeightVector, len(r.Weights))
	for i, w := range r.Weights {
		out[i] = decimal.NewFromFloat(w).Round(places).InexactFloat64()
	}
	return out
}

// Optimizer 均值-方差组合优化器: 随机探索 + 单纯形上的投影梯度上升.
type Optimizer struct {
	portfolios    int
	maxIterations int
	tolerance     float64
	workers       int
}

// OptimizerOption 优化器选项.
type OptimizerOption func(*Optimizer)

// WithPortfolios 设置探索阶段的随机组合数量.
func WithPortfolios(k int) OptimizerOption {
	return func(o *Optimizer) {
		if k > 0 {
			o.portfolios = k
		}
	}
}

// WithMaxIterations 设置精炼阶段的最大迭代次数.
func WithMaxIterations(n int) OptimizerOption {
	return func(o *Optimizer) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithTolerance 设置投影梯度范数的收敛容差.
func WithTolerance(tol float64) OptimizerOption {
	return func(o *Optimizer) {
		if tol > 0 {
			o.tolerance = tol
		}
	}
}

// WithWorkers 设置探索阶段的并发数.
func WithWorkers(n int) OptimizerOption {
	return func(o *Optimizer) {
		if n > 0 {
			o.workers = n
		}
	}
}

// NewOptimizer 创建优化器.
func NewOptimizer(opts ...OptimizerOption) *Optimizer {
	o := &Optimizer{
		portfolios:    10000,
		maxIterations: 2000,
		tolerance:     1e-6,
		workers:       runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Explore 抽取 K 个随机配置并并发计算其统计量. 输出顺序与抽样顺序一致.
func (o *Optimizer) Explore(returns *ReturnSeries, gen *sim.Generator) ([]ExplorationPoint, error) {
	if returns == nil {
		return nil, xerrors.ErrEmptyData.WithDetail("nil return series")
	}
	allocations, err := gen.Allocations(o.portfolios, returns.Assets())
	if err != nil {
		return nil, err
	}

	points := make([]ExplorationPoint, len(allocations))
	chunk := max(1, (len(allocations)+o.workers-1)/o.workers)
	p := pool.New().WithErrors().WithFirstError().WithMaxGoroutines(o.workers)
	for lo := 0; lo < len(allocations); lo += chunk {
		hi := min(lo+chunk, len(allocations))
		p.Go(func() error {
			for i := lo; i < hi; i++ {
				stats, err := Statistics(allocations[i], returns)
				if err != nil {
					return err
				}
				points[i] = ExplorationPoint{Weights: allocations[i], Statistics: stats}
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	return points, nil
}

// Refine 在 {w : sum w = 1, 0 <= w_i <= 1} 上最大化夏普比率 (等价于最小化负夏普).
// 使用带 Armijo 回溯的投影梯度上升，确定性地依赖 seed.
// 未收敛时同时返回结果 (Status 为 StatusNotConverged) 与 ErrNotConverged.
func (o *Optimizer) Refine(returns *ReturnSeries, seed WeightVector) (*OptimizationResult, error) {
	if returns == nil {
		return nil, xerrors.ErrEmptyData.WithDetail("nil return series")
	}
	if len(seed) != returns.Assets() {
		return nil, xerrors.ErrDimMismatch.WithDetail("seed has %d weights for %d assets", len(seed), returns.Assets())
	}

	w := projectSimplex(seed)
	stats, err := Statistics(w, returns)
	if err != nil {
		return nil, err
	}

	n := len(w)
	grad := make([]float64, n)
	cand := make([]float64, n)
	step := make([]float64, n)
	t := 1.0

	res := &OptimizationResult{Status: StatusNotConverged}
	for it := 1; it <= o.maxIterations; it++ {
		res.Iterations = it
		sharpeGradient(grad, w, stats, returns)

		// 单位步长投影梯度的范数为一阶最优性度量.
		floats.AddTo(cand, w, grad)
		cand = projectSimplex(cand)
		if floats.Distance(cand, w, 2) < o.tolerance {
			res.Status = StatusConverged
			break
		}

		accepted := false
		for t >= minStepSize {
			floats.AddScaledTo(cand, w, t, grad)
			cand = projectSimplex(cand)
			floats.SubTo(step, cand, w)
			next, err := Statistics(cand, returns)
			if err == nil && next.Sharpe >= stats.Sharpe+armijoC*floats.Dot(grad, step) {
				copy(w, cand)
				stats = next
				accepted = true
				break
			}
			t *= 0.5
		}
		if !accepted {
			break
		}
		t = min(2*t, maxStepSize)
	}

	res.Weights = w
	res.Statistics = stats
	if res.Status != StatusConverged {
		return res, xerrors.ErrNotConverged.WithDetail("stopped after %d iterations", res.Iterations)
	}
	return res, nil
}

// Optimize 先探索再以第一个探索向量为起点精炼.
func (o *Optimizer) Optimize(returns *ReturnSeries, gen *sim.Generator) (*OptimizationResult, []ExplorationPoint, error) {
	points, err := o.Explore(returns, gen)
	if err != nil {
		return nil, nil, err
	}
	res, err := o.Refine(returns, slices.Clone(points[0].Weights))
	return res, points, err
}

// sharpeGradient 计算年化夏普比率对权重的梯度:
// dS/dw = mu/sigma - R * Sigma w / sigma^3，mu 与 Sigma 均为年化量.
func sharpeGradient(dst []float64, w []float64, stats PortfolioStatistics, returns *ReturnSeries) {
	p := returns.periodsPerYear
	var sw mat.VecDense
	sw.MulVec(returns.cov, mat.NewVecDense(len(w), w))

	vol := stats.Volatility
	vol3 := vol * vol * vol
	for i := range dst {
		dst[i] = p*returns.mean[i]/vol - stats.Return*p*sw.AtVec(i)/vol3
	}
}

// projectSimplex 把 v 欧氏投影到概率单纯形上.
func projectSimplex(v []float64) []float64 {
	u := slices.Clone(v)
	slices.Sort(u)
	slices.Reverse(u)

	var cum, theta float64
	for i, ui := range u {
		cum += ui
		if t := (cum - 1) / float64(i+1); ui-t > 0 {
			theta = t
		}
	}

	out := make([]float64, len(v))
	for i, vi := range v {
		out[i] = math.Max(vi-theta, 0)
	}
	return out
}

// TangencyPortfolio 无约束切点组合 Sigma^-1 mu / 1' Sigma^-1 mu (允许卖空).
func TangencyPortfolio(returns *ReturnSeries) (WeightVector, error) {
	return normalizedSolve(returns, returns.mean)
}

// MinimumVariancePortfolio 无约束最小方差组合 Sigma^-1 1 / 1' Sigma^-1 1.
func MinimumVariancePortfolio(returns *ReturnSeries) (WeightVector, error) {
	ones := make([]float64, returns.Assets())
	for i := range ones {
		ones[i] = 1
	}
	return normalizedSolve(returns, ones)
}

// normalizedSolve 用 Cholesky 分解求解 Sigma x = b 并把 x 归一化为和为 1.
func normalizedSolve(returns *ReturnSeries, b []float64) (WeightVector, error) {
	if returns == nil {
		return nil, xerrors.ErrEmptyData.WithDetail("nil return series")
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(returns.cov); !ok {
		return nil, xerrors.ErrNotPositiveDefinite
	}

	n := returns.Assets()
	x := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(x, mat.NewVecDense(n, slices.Clone(b))); err != nil {
		return nil, xerrors.ErrNotPositiveDefinite.WithCause(err)
	}

	raw := x.RawVector().Data
	sum := floats.Sum(raw)
	if math.Abs(sum) < 1e-300 {
		return nil, xerrors.ErrInvalidParams.WithDetail("solution cannot be normalised, weight sum %v", sum)
	}

	out := make(WeightVector, n)
	for i, v := range raw {
		out[i] = v / sum
	}
	return out, nil
}
