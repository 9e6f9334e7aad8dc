package sim

import (
	"math"
	"slices"

	"github.com/wyfcoding/quant/xerrors"
	"gonum.org/v1/gonum/stat"
)

// EstimationResult 蒙特卡洛估计结果.
type EstimationResult struct {
	Value    float64 `json:"value"`
	StdError float64 `json:"std_error"` // 均值型估计的标准误，分位数估计为 0
	Samples  int     `json:"samples"`
}

// Aggregator 把路径集合归约为一个标量估计.
type Aggregator interface {
	Aggregate(ens *PathEnsemble) (EstimationResult, error)
}

// AggregatorFunc 函数形式的 Aggregator.
type AggregatorFunc func(ens *PathEnsemble) (EstimationResult, error)

// Aggregate 实现 Aggregator.
func (f AggregatorFunc) Aggregate(ens *PathEnsemble) (EstimationResult, error) {
	if ens.Len() == 0 || ens.Steps() == 0 {
		return EstimationResult{}, xerrors.ErrEmptyData
	}
	return f(ens)
}

// Estimator 蒙特卡洛估计器，无状态，每次调用重新计算.
type Estimator struct{}

// Estimate 对集合应用聚合规则. 空集合返回 ErrEmptyData.
func (Estimator) Estimate(ens *PathEnsemble, agg Aggregator) (EstimationResult, error) {
	if ens.Len() == 0 || ens.Steps() == 0 {
		return EstimationResult{}, xerrors.ErrEmptyData
	}
	if agg == nil {
		return EstimationResult{}, xerrors.ErrInvalidParams.WithDetail("nil aggregator")
	}
	return agg.Aggregate(ens)
}

// meanResult 计算样本均值与均值标准误.
func meanResult(values []float64) EstimationResult {
	res := EstimationResult{Samples: len(values)}
	switch len(values) {
	case 0:
		return res
	case 1:
		res.Value = values[0]
		return res
	}
	mean, std := stat.MeanStdDev(values, nil)
	res.Value = mean
	res.StdError = std / math.Sqrt(float64(len(values)))
	return res
}

// DiscountedExpectation 债券定价: principal * mean(exp(-sum(path)*dt)).
// 路径值被视为短期利率.
func DiscountedExpectation(principal float64) Aggregator {
	return AggregatorFunc(func(ens *PathEnsemble) (EstimationResult, error) {
		values := make([]float64, ens.Len())
		for i := range values {
			values[i] = principal * math.Exp(-SamplePath(ens.row(i)).Integral(ens.dt))
		}
		return meanResult(values), nil
	})
}

// PayoffExpectation 期权定价: discount * mean(max(payoff(terminal), 0)).
// 截断在每条路径上进行，再求平均.
func PayoffExpectation(payoff Payoff, discount float64) Aggregator {
	return AggregatorFunc(func(ens *PathEnsemble) (EstimationResult, error) {
		if payoff == nil {
			return EstimationResult{}, xerrors.ErrInvalidPayoff.WithDetail("nil payoff")
		}
		if discount < 0 || math.IsNaN(discount) || math.IsInf(discount, 0) {
			return EstimationResult{}, xerrors.ErrInvalidParams.WithDetail("discount factor must be finite and >= 0, got %v", discount)
		}

		terminal := ens.Terminal()
		for i, s := range terminal {
			v, err := payoff(s)
			if err != nil {
				return EstimationResult{}, err
			}
			terminal[i] = discount * math.Max(v, 0)
		}
		return meanResult(terminal), nil
	})
}

// ValueAtRisk 风险估计: current - quantile(terminal, 1-confidence).
// 分位数在升序终值的位置 (n-1)(1-confidence) 处线性插值. confidence 必须位于 (0, 1).
func ValueAtRisk(current, confidence float64) Aggregator {
	return AggregatorFunc(func(ens *PathEnsemble) (EstimationResult, error) {
		if !(confidence > 0 && confidence < 1) {
			return EstimationResult{}, xerrors.ErrInvalidConfidence.WithDetail("confidence must be in (0, 1), got %v", confidence)
		}

		terminal := ens.Terminal()
		slices.Sort(terminal)
		q := percentile(terminal, 1-confidence)
		return EstimationResult{Value: current - q, Samples: len(terminal)}, nil
	})
}

// percentile 对升序样本在 (n-1)p 处线性插值，两端取端点值.
func percentile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	hi := min(lo+1, len(sorted)-1)
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// TerminalMean 终值均值，用于股价预测.
func TerminalMean() Aggregator {
	return AggregatorFunc(func(ens *PathEnsemble) (EstimationResult, error) {
		return meanResult(ens.Terminal()), nil
	})
}

// OptionContract 欧式期权合约参数.
type OptionContract struct {
	Type     OptionType `json:"type"`
	Spot     float64    `json:"spot"`
	Strike   float64    `json:"strike"`
	Maturity float64    `json:"maturity"` // 年
	Rate     float64    `json:"rate"`     // 无风险利率
	Sigma    float64    `json:"sigma"`
}

// Validate 校验合约参数.
func (c OptionContract) Validate() error {
	if c.Strike < 0 || math.IsNaN(c.Strike) || math.IsInf(c.Strike, 0) {
		return xerrors.ErrInvalidParams.WithDetail("strike must be finite and >= 0, got %v", c.Strike)
	}
	if math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0) {
		return xerrors.ErrInvalidParams.WithDetail("rate must be finite, got %v", c.Rate)
	}
	return nil
}

// Process 返回风险中性测度下的终值过程参数.
func (c OptionContract) Process() (ProcessParameters, error) {
	return NewGeometricBrownian(c.Spot, c.Rate, c.Sigma, c.Maturity, 1)
}

// Discount 返回折现因子 exp(-rate*maturity).
func (c OptionContract) Discount() float64 {
	return math.Exp(-c.Rate * c.Maturity)
}

// MonteCarlo 把模拟器和估计器组合成常用的定价与风险流程.
type MonteCarlo struct {
	sim *Simulator
	est Estimator
}

// NewMonteCarlo 创建蒙特卡洛流程. sim 为 nil 时使用随机种子的单线程模拟器.
func NewMonteCarlo(sim *Simulator) *MonteCarlo {
	if sim == nil {
		sim = NewSimulator(nil)
	}
	return &MonteCarlo{sim: sim}
}

// Simulator 返回底层模拟器.
func (mc *MonteCarlo) Simulator() *Simulator {
	return mc.sim
}

// BondPrice 以短期利率路径估计零息债券价格.
func (mc *MonteCarlo) BondPrice(params ProcessParameters, principal float64, numPaths int) (EstimationResult, error) {
	ens, err := mc.sim.SimulatePaths(params, numPaths)
	if err != nil {
		return EstimationResult{}, err
	}
	return mc.est.Estimate(ens, DiscountedExpectation(principal))
}

// OptionPrice 以 GBM 终值抽样估计欧式期权价格，结果按 exp(-rT) 折现.
func (mc *MonteCarlo) OptionPrice(c OptionContract, iterations int) (EstimationResult, error) {
	payoff, err := c.Type.Payoff(c.Strike)
	if err != nil {
		return EstimationResult{}, err
	}
	return mc.PriceWithPayoff(c, payoff, iterations)
}

// PriceWithPayoff 使用自定义收益函数定价，合约的 Type 被忽略.
func (mc *MonteCarlo) PriceWithPayoff(c OptionContract, payoff Payoff, iterations int) (EstimationResult, error) {
	if err := c.Validate(); err != nil {
		return EstimationResult{}, err
	}
	params, err := c.Process()
	if err != nil {
		return EstimationResult{}, err
	}
	ens, err := mc.sim.SimulateTerminal(params, iterations)
	if err != nil {
		return EstimationResult{}, err
	}
	return mc.est.Estimate(ens, PayoffExpectation(payoff, c.Discount()))
}

// ValueAtRisk 估计头寸在 days 个周期后的 VaR. mu 与 sigma 为单周期对数收益的均值与标准差.
func (mc *MonteCarlo) ValueAtRisk(position, mu, sigma, confidence float64, days, iterations int) (EstimationResult, error) {
	params, err := NewGeometricBrownian(position, mu, sigma, float64(days), 1)
	if err != nil {
		return EstimationResult{}, err
	}
	ens, err := mc.sim.SimulateTerminal(params, iterations)
	if err != nil {
		return EstimationResult{}, err
	}
	return mc.est.Estimate(ens, ValueAtRisk(position, confidence))
}

// ExpectedPrice 以逐日 GBM 路径预测 days 个周期后的期望价格，同时返回路径集合供展示.
func (mc *MonteCarlo) ExpectedPrice(s0, mu, sigma float64, days, numPaths int) (EstimationResult, *PathEnsemble, error) {
	params, err := NewGeometricBrownian(s0, mu, sigma, float64(days), days)
	if err != nil {
		return EstimationResult{}, nil, err
	}
	ens, err := mc.sim.SimulatePaths(params, numPaths)
	if err != nil {
		return EstimationResult{}, nil, err
	}
	res, err := mc.est.Estimate(ens, TerminalMean())
	return res, ens, err
}
