package sim

import (
	"math"
	"runtime"

	"github.com/wyfcoding/quant/xerrors"
	"golang.org/x/sync/errgroup"
)

// minPathsPerWorker 每个 worker 至少分到的路径数，过小的分片不值得并行.
const minPathsPerWorker = 64

// Simulator 随机过程路径模拟器.
type Simulator struct {
	gen     *Generator
	workers int
}

// Option 模拟器选项.
type Option func(*Simulator)

// WithWorkers 设置并行生成路径的 worker 数. n <= 0 时使用 GOMAXPROCS.
// 固定种子与固定 worker 数下结果是确定的.
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		s.workers = n
	}
}

// NewSimulator 创建模拟器. gen 为 nil 时使用随机种子.
func NewSimulator(gen *Generator, opts ...Option) *Simulator {
	if gen == nil {
		gen = NewRandomGenerator()
	}
	s := &Simulator{gen: gen, workers: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SimulatePath 模拟单条路径.
func (s *Simulator) SimulatePath(params ProcessParameters) (SamplePath, error) {
	ens, err := s.SimulatePaths(params, 1)
	if err != nil {
		return nil, err
	}
	return ens.Path(0), nil
}

// SimulatePaths 生成 numPaths 条独立路径，每条长度为 params.Steps.
// GBM 使用精确解离散，其余过程族使用 Euler-Maruyama.
func (s *Simulator) SimulatePaths(params ProcessParameters, numPaths int) (*PathEnsemble, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if numPaths < 1 {
		return nil, xerrors.ErrInvalidParams.WithDetail("num paths must be >= 1, got %d", numPaths)
	}

	ens := newPathEnsemble(numPaths, params.Steps, params.Dt())
	fill := s.stepper(params)
	if err := s.run(numPaths, func(gen *Generator, lo, hi int) {
		noise := make([]float64, params.Steps-1)
		for i := lo; i < hi; i++ {
			gen.fillNormals(noise)
			fill(ens.row(i), noise)
		}
	}); err != nil {
		return nil, err
	}

	return ens, nil
}

// SimulateTerminal 直接抽取 GBM 终值 x0*exp((mu-sigma^2/2)T + sigma*sqrt(T)*Z)，
// 返回每条路径长度为 1 的集合. 仅支持 GBM.
func (s *Simulator) SimulateTerminal(params ProcessParameters, n int) (*PathEnsemble, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Kind != KindGeometricBrownian {
		return nil, xerrors.ErrInvalidParams.WithDetail("terminal draws require kind gbm, got %s", params.Kind)
	}
	if n < 1 {
		return nil, xerrors.ErrInvalidParams.WithDetail("num draws must be >= 1, got %d", n)
	}

	t := params.Horizon
	drift := (params.Mu - 0.5*params.Sigma*params.Sigma) * t
	vol := params.Sigma * math.Sqrt(t)

	ens := newPathEnsemble(n, 1, t)
	if err := s.run(n, func(gen *Generator, lo, hi int) {
		for i := lo; i < hi; i++ {
			ens.data[i] = params.Initial * math.Exp(drift+vol*gen.Normal())
		}
	}); err != nil {
		return nil, err
	}

	return ens, nil
}

// stepper 返回把一组正态增量写成一条路径的函数. len(noise) == len(path)-1.
func (s *Simulator) stepper(params ProcessParameters) func(path, noise []float64) {
	dt := params.Dt()
	sqrtDt := math.Sqrt(dt)

	if params.Kind == KindGeometricBrownian {
		drift := (params.Mu - 0.5*params.Sigma*params.Sigma) * dt
		vol := params.Sigma * sqrtDt
		return func(path, noise []float64) {
			path[0] = params.Initial
			var logX float64
			for i, z := range noise {
				logX += drift + vol*z
				path[i+1] = params.Initial * math.Exp(logX)
			}
		}
	}

	kernel := params.Kernel()
	return func(path, noise []float64) {
		path[0] = params.Initial
		for i, z := range noise {
			x := path[i]
			path[i+1] = x + kernel.Drift(x)*dt + kernel.Diffusion(x)*sqrtDt*z
		}
	}
}

// run 把 [0, n) 切成连续分片并行执行. 子生成器在启动前按分片顺序依次派生，
// 因此结果只取决于种子与 worker 数.
func (s *Simulator) run(n int, work func(gen *Generator, lo, hi int)) error {
	workers := min(s.workers, max(1, n/minPathsPerWorker))
	if workers <= 1 {
		work(s.gen, 0, n)
		return nil
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		child := s.gen.Split()
		g.Go(func() error {
			work(child, lo, hi)
			return nil
		})
	}

	return g.Wait()
}
