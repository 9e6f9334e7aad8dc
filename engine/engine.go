// Package engine 把模拟、定价与组合优化组装成面向请求的计算服务，供 HTTP 与命令行共用.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-playground/validator/v10"
	"github.com/wyfcoding/quant/algorithm/finance"
	"github.com/wyfcoding/quant/algorithm/sim"
	"github.com/wyfcoding/quant/cache"
	"github.com/wyfcoding/quant/config"
	"github.com/wyfcoding/quant/limiter"
	"github.com/wyfcoding/quant/logging"
	"github.com/wyfcoding/quant/metrics"
	"github.com/wyfcoding/quant/tracing"
	"github.com/wyfcoding/quant/xerrors"
)

const defaultRoundTo = 4

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

// Engine 计算入口. 每个请求使用独立的生成器，可并发调用.
type Engine struct {
	logger  *logging.Logger
	metrics *metrics.Metrics
	cache   cache.Cache
	slots   *limiter.Slots

	mu   sync.RWMutex
	sim  config.SimulationConfig
	port config.PortfolioConfig
}

// Option 引擎可选项.
type Option func(*Engine)

// WithCache 缓存固定种子请求的结果. 随机种子的请求不会被缓存.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// New 创建计算引擎并订阅配置热更新. m 可以为 nil.
// 并发上限 simulation.max_concurrent 只在创建时读取.
func New(cfg *config.Config, logger *logging.Logger, m *metrics.Metrics, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		logger:  logger.WithModule("engine"),
		metrics: m,
		slots:   limiter.NewSlots(cfg.Simulation.MaxConcurrent),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.apply(cfg)
	config.RegisterReloadHook(e.apply)
	return e
}

func (e *Engine) apply(cfg *config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sim = cfg.Simulation
	e.port = cfg.Portfolio
}

func (e *Engine) settings() (config.SimulationConfig, config.PortfolioConfig) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sim, e.port
}

// seed 依次取请求种子、配置种子，均为 0 时随机生成. fixed 表示结果可复现.
func (e *Engine) seed(requested uint64) (seed uint64, fixed bool) {
	if requested != 0 {
		return requested, true
	}
	if s, _ := e.settings(); s.Seed != 0 {
		return s.Seed, true
	}
	return sim.RandomSeed(), false
}

func (e *Engine) monteCarlo(seed uint64) *sim.MonteCarlo {
	s, _ := e.settings()
	return sim.NewMonteCarlo(sim.NewSimulator(sim.NewGenerator(seed), sim.WithWorkers(s.Workers)))
}

func (e *Engine) paths(requested int) int {
	if requested > 0 {
		return requested
	}
	s, _ := e.settings()
	return s.Paths
}

func checkRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return xerrors.ErrInvalidParams.
				WithDetail("%s failed %s=%s (value %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()).
				WithCause(err)
		}
		return xerrors.ErrInvalidParams.WithCause(err)
	}
	return nil
}

// observe 为一次计算统一处理并发配额、span、指标与日志.
func observe[T any](ctx context.Context, e *Engine, op string, fn func(ctx context.Context) (*T, error)) (*T, error) {
	ctx, span := tracing.StartSpan(ctx, "engine."+op)
	defer span.End()

	start := time.Now()
	var out *T
	release, err := e.slots.Acquire(ctx)
	if err != nil {
		err = xerrors.ErrBusy.WithCause(err)
	} else {
		out, err = fn(ctx)
		release()
	}
	e.metrics.ObserveOperation(op, start, err)

	if err != nil {
		tracing.SetError(ctx, err)
		e.logger.WarnContext(ctx, "operation failed", "operation", op, "duration", time.Since(start), "error", err)
		return out, err
	}
	e.logger.InfoContext(ctx, "operation finished", "operation", op, "duration", time.Since(start))
	return out, nil
}

// cached 有 key 时先查缓存，未命中时计算并回写. 出错的结果不缓存.
func cached[T any](ctx context.Context, e *Engine, op, key string, fn func() (*T, error)) (*T, error) {
	if key == "" {
		return fn()
	}

	var hit T
	if err := e.cache.Get(ctx, key, &hit); err == nil {
		tracing.AddTag(ctx, "cache", "hit")
		return &hit, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		e.logger.WarnContext(ctx, "cache read failed", "operation", op, "error", err)
	}

	out, err := fn()
	if err != nil {
		return out, err
	}
	if err := e.cache.Set(ctx, key, out, 0); err != nil {
		e.logger.WarnContext(ctx, "cache write failed", "operation", op, "error", err)
	}
	return out, nil
}

// cacheKey 由请求、解析后的种子与路径数等参数以及模拟 worker 数组成缓存键.
// worker 数决定子流划分，会影响固定种子下的结果. 未启用缓存或种子不固定时返回空串.
func (e *Engine) cacheKey(op string, fixed bool, req any, resolved ...any) string {
	if e.cache == nil || !fixed {
		return ""
	}
	s, _ := e.settings()
	data, err := json.Marshal(struct {
		Req      any   `json:"req"`
		Resolved []any `json:"resolved"`
		Workers  int   `json:"workers"`
	}{req, resolved, s.Workers})
	if err != nil {
		return ""
	}
	return op + ":" + strconv.FormatUint(xxhash.Sum64(data), 16)
}

// PriceBond 以 Vasicek 短期利率路径估计零息债券价格，并附带闭式解.
func (e *Engine) PriceBond(ctx context.Context, req BondRequest) (*BondResponse, error) {
	return observe(ctx, e, "bond", func(ctx context.Context) (*BondResponse, error) {
		if err := checkRequest(req); err != nil {
			return nil, err
		}
		steps := req.Steps
		if steps == 0 {
			s, _ := e.settings()
			steps = s.Steps
		}
		params, err := sim.NewMeanReverting(req.R0, req.Kappa, req.Theta, req.Sigma, req.Maturity, steps)
		if err != nil {
			return nil, err
		}

		seed, fixed := e.seed(req.Seed)
		n := e.paths(req.Paths)
		tracing.AddTag(ctx, "seed", seed)
		tracing.AddTag(ctx, "paths", n)

		return cached(ctx, e, "bond", e.cacheKey("bond", fixed, req, seed, n, steps), func() (*BondResponse, error) {
			est, err := e.monteCarlo(seed).BondPrice(params, req.Principal, n)
			if err != nil {
				return nil, err
			}
			e.metrics.AddPaths("bond", n)

			analytic, err := finance.VasicekBondPrice(req.Principal, req.R0, req.Kappa, req.Theta, req.Sigma, req.Maturity)
			if err != nil {
				return nil, err
			}
			return &BondResponse{Estimate: est, Analytic: analytic, Seed: seed}, nil
		})
	})
}

// PriceOption 估计欧式期权价格. 标准看涨/看跌同时给出 Black-Scholes 价格与希腊字母.
func (e *Engine) PriceOption(ctx context.Context, req OptionRequest) (*OptionResponse, error) {
	return observe(ctx, e, "option", func(ctx context.Context) (*OptionResponse, error) {
		if err := checkRequest(req); err != nil {
			return nil, err
		}
		contract := sim.OptionContract{
			Spot:     req.Spot,
			Strike:   req.Strike,
			Maturity: req.Maturity,
			Rate:     req.Rate,
			Sigma:    req.Sigma,
		}

		seed, fixed := e.seed(req.Seed)
		n := e.paths(req.Paths)
		tracing.AddTag(ctx, "seed", seed)
		tracing.AddTag(ctx, "paths", n)

		if req.Payoff != "" {
			prog, err := sim.CompilePayoff(req.Payoff)
			if err != nil {
				return nil, err
			}
			tracing.AddTag(ctx, "payoff", prog.String())
			return cached(ctx, e, "option", e.cacheKey("option", fixed, req, seed, n), func() (*OptionResponse, error) {
				est, err := e.monteCarlo(seed).PriceWithPayoff(contract, prog.Bind(req.Strike, req.Spot, req.Maturity), n)
				if err != nil {
					return nil, err
				}
				e.metrics.AddPaths("option", n)
				return &OptionResponse{Estimate: est, Seed: seed}, nil
			})
		}

		typ, err := sim.ParseOptionType(req.Type)
		if err != nil {
			return nil, err
		}
		contract.Type = typ
		return cached(ctx, e, "option", e.cacheKey("option", fixed, req, seed, n), func() (*OptionResponse, error) {
			est, err := e.monteCarlo(seed).OptionPrice(contract, n)
			if err != nil {
				return nil, err
			}
			e.metrics.AddPaths("option", n)
			resp := &OptionResponse{Estimate: est, Seed: seed}

			// 零波动率或零行权价时闭式解无定义，只返回模拟结果.
			if req.Sigma > 0 && req.Strike > 0 {
				g, err := finance.BlackScholesGreeks(typ == sim.Call, req.Spot, req.Strike, req.Maturity, req.Rate, req.Sigma)
				if err != nil {
					return nil, err
				}
				resp.BlackScholes = &g
			}
			return resp, nil
		})
	})
}

// ValueAtRisk 同时给出蒙特卡洛 VaR 与参数法 VaR.
func (e *Engine) ValueAtRisk(ctx context.Context, req VaRRequest) (*VaRResponse, error) {
	return observe(ctx, e, "var", func(ctx context.Context) (*VaRResponse, error) {
		if err := checkRequest(req); err != nil {
			return nil, err
		}
		seed, fixed := e.seed(req.Seed)
		n := e.paths(req.Paths)
		tracing.AddTag(ctx, "seed", seed)
		tracing.AddTag(ctx, "paths", n)

		return cached(ctx, e, "var", e.cacheKey("var", fixed, req, seed, n), func() (*VaRResponse, error) {
			est, err := e.monteCarlo(seed).ValueAtRisk(req.Position, req.Mu, req.Sigma, req.Confidence, req.Days, n)
			if err != nil {
				return nil, err
			}
			e.metrics.AddPaths("var", n)

			parametric, err := finance.ParametricVaR(req.Position, req.Mu, req.Sigma, req.Confidence, req.Days)
			if err != nil {
				return nil, err
			}
			return &VaRResponse{MonteCarlo: est, Parametric: parametric, Seed: seed}, nil
		})
	})
}

// ProjectStock 预测 days 个周期后的期望股价，可附带若干条抽样路径.
func (e *Engine) ProjectStock(ctx context.Context, req StockRequest) (*StockResponse, error) {
	return observe(ctx, e, "stock", func(ctx context.Context) (*StockResponse, error) {
		if err := checkRequest(req); err != nil {
			return nil, err
		}
		seed, fixed := e.seed(req.Seed)
		n := e.paths(req.Paths)
		tracing.AddTag(ctx, "seed", seed)
		tracing.AddTag(ctx, "paths", n)

		return cached(ctx, e, "stock", e.cacheKey("stock", fixed, req, seed, n), func() (*StockResponse, error) {
			est, ens, err := e.monteCarlo(seed).ExpectedPrice(req.Spot, req.Mu, req.Sigma, req.Days, n)
			if err != nil {
				return nil, err
			}
			e.metrics.AddPaths("stock", n)

			resp := &StockResponse{Expected: est, Seed: seed}
			if req.Samples > 0 {
				// 抽样使用派生种子，不影响估计结果的可复现性.
				if resp.Samples, err = ens.Sample(req.Samples, sim.NewGenerator(seed+1)); err != nil {
					return nil, err
				}
			}
			return resp, nil
		})
	})
}

// SimulateProcess 模拟任意支持的过程族，返回逐步集合均值.
func (e *Engine) SimulateProcess(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
	return observe(ctx, e, "process", func(ctx context.Context) (*ProcessResponse, error) {
		if err := checkRequest(req); err != nil {
			return nil, err
		}
		if err := req.Process.Validate(); err != nil {
			return nil, err
		}
		seed, fixed := e.seed(req.Seed)
		n := e.paths(req.Paths)
		tracing.AddTag(ctx, "seed", seed)
		tracing.AddTag(ctx, "paths", n)
		tracing.AddTag(ctx, "kind", string(req.Process.Kind))

		return cached(ctx, e, "process", e.cacheKey("process", fixed, req, seed, n), func() (*ProcessResponse, error) {
			ens, err := e.monteCarlo(seed).Simulator().SimulatePaths(req.Process, n)
			if err != nil {
				return nil, err
			}
			e.metrics.AddPaths("process", n)

			resp := &ProcessResponse{Dt: ens.Dt(), Mean: make([]float64, ens.Steps()), Seed: seed}
			for i := range resp.Mean {
				resp.Mean[i] = ens.MeanAt(i)
			}
			if req.Samples > 0 {
				if resp.Samples, err = ens.Sample(req.Samples, sim.NewGenerator(seed+1)); err != nil {
					return nil, err
				}
			}
			return resp, nil
		})
	})
}

// OptimizePortfolio 求最大夏普组合. 未收敛时同时返回结果与 ErrNotConverged.
func (e *Engine) OptimizePortfolio(ctx context.Context, req PortfolioRequest) (*PortfolioResponse, error) {
	return observe(ctx, e, "portfolio", func(ctx context.Context) (*PortfolioResponse, error) {
		if err := checkRequest(req); err != nil {
			return nil, err
		}
		_, pc := e.settings()

		rows := req.Returns
		switch {
		case len(req.Prices) > 0 && len(req.Returns) > 0:
			return nil, xerrors.ErrInvalidParams.WithDetail("prices and returns are mutually exclusive")
		case len(req.Prices) > 0:
			var err error
			if rows, err = finance.LogReturns(req.Prices); err != nil {
				return nil, err
			}
		case len(req.Returns) == 0:
			return nil, xerrors.ErrEmptyData.WithDetail("prices or returns required")
		}

		returns, err := finance.NewReturnSeries(rows, pc.PeriodsPerYear)
		if err != nil {
			return nil, err
		}
		if len(req.Tickers) > 0 && len(req.Tickers) != returns.Assets() {
			return nil, xerrors.ErrDimMismatch.WithDetail("%d tickers for %d assets", len(req.Tickers), returns.Assets())
		}

		portfolios := pc.Portfolios
		if req.Portfolios > 0 {
			portfolios = req.Portfolios
		}
		seed, fixed := e.seed(req.Seed)
		tracing.AddTag(ctx, "seed", seed)
		tracing.AddTag(ctx, "assets", returns.Assets())
		tracing.AddTag(ctx, "portfolios", portfolios)

		key := e.cacheKey("portfolio", fixed, req, seed, portfolios, pc)
		return cached(ctx, e, "portfolio", key, func() (*PortfolioResponse, error) {
			opt := finance.NewOptimizer(
				finance.WithPortfolios(portfolios),
				finance.WithMaxIterations(pc.MaxIterations),
				finance.WithTolerance(pc.Tolerance),
				finance.WithWorkers(pc.Workers),
			)
			res, points, optErr := opt.Optimize(returns, sim.NewGenerator(seed))
			if res == nil {
				return nil, optErr
			}
			e.metrics.ObserveIterations(res.Iterations)

			roundTo := req.RoundTo
			if roundTo == 0 {
				roundTo = defaultRoundTo
			}
			resp := &PortfolioResponse{
				Tickers:    req.Tickers,
				Weights:    res.Rounded(roundTo),
				Statistics: res.Statistics,
				Status:     res.Status,
				Iterations: res.Iterations,
				Seed:       seed,
			}
			// 协方差奇异时切点组合不存在，不影响主结果.
			if tangency, err := finance.TangencyPortfolio(returns); err == nil {
				resp.Tangency = tangency
			} else {
				e.logger.DebugContext(ctx, "tangency portfolio unavailable", "error", err)
			}
			if req.IncludeExploration {
				resp.Exploration = points
			}
			return resp, optErr
		})
	})
}
