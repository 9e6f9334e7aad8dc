package engine

import (
	"github.com/wyfcoding/quant/algorithm/finance"
	"github.com/wyfcoding/quant/algorithm/sim"
)

// Simulation 各请求共用的模拟控制参数. 零值表示使用配置中的默认值.
type Simulation struct {
	Paths int    `json:"paths" binding:"gte=0,lte=5000000"`
	Seed  uint64 `json:"seed"`
}

// BondRequest Vasicek 短期利率下的零息债券定价请求.
type BondRequest struct {
	Principal float64 `json:"principal" binding:"gt=0"`
	R0        float64 `json:"r0"`
	Kappa     float64 `json:"kappa"     binding:"gte=0"`
	Theta     float64 `json:"theta"`
	Sigma     float64 `json:"sigma"     binding:"gte=0"`
	Maturity  float64 `json:"maturity"  binding:"gt=0"`
	Steps     int     `json:"steps"     binding:"gte=0,lte=100000"`
	Simulation
}

// BondResponse 模拟估计与闭式解对照.
type BondResponse struct {
	Estimate sim.EstimationResult `json:"estimate"`
	Analytic float64              `json:"analytic"`
	Seed     uint64               `json:"seed"`
}

// OptionRequest 欧式期权定价请求. Payoff 非空时使用自定义表达式，Type 被忽略.
type OptionRequest struct {
	Type     string  `json:"type"`
	Spot     float64 `json:"spot"     binding:"gt=0"`
	Strike   float64 `json:"strike"   binding:"gte=0"`
	Maturity float64 `json:"maturity" binding:"gt=0"`
	Rate     float64 `json:"rate"`
	Sigma    float64 `json:"sigma"    binding:"gte=0"`
	Payoff   string  `json:"payoff"`
	Simulation
}

// OptionResponse 模拟价格及 Black-Scholes 参考值. 自定义收益时不给出参考值.
type OptionResponse struct {
	Estimate     sim.EstimationResult `json:"estimate"`
	BlackScholes *finance.Greeks      `json:"black_scholes,omitempty"`
	Seed         uint64               `json:"seed"`
}

// VaRRequest 蒙特卡洛 VaR 请求. Mu 与 Sigma 为单周期对数收益的均值与标准差.
type VaRRequest struct {
	Position   float64 `json:"position"   binding:"gt=0"`
	Mu         float64 `json:"mu"`
	Sigma      float64 `json:"sigma"      binding:"gte=0"`
	Confidence float64 `json:"confidence" binding:"gt=0,lt=1"`
	Days       int     `json:"days"       binding:"min=1"`
	Simulation
}

// VaRResponse 模拟 VaR 与参数法 VaR.
type VaRResponse struct {
	MonteCarlo sim.EstimationResult `json:"monte_carlo"`
	Parametric float64              `json:"parametric"`
	Seed       uint64               `json:"seed"`
}

// StockRequest 股价预测请求.
type StockRequest struct {
	Spot    float64 `json:"spot"    binding:"gt=0"`
	Mu      float64 `json:"mu"`
	Sigma   float64 `json:"sigma"   binding:"gte=0"`
	Days    int     `json:"days"    binding:"min=1,max=3650"`
	Samples int     `json:"samples" binding:"gte=0"`
	Simulation
}

// StockResponse 期望价格及抽样路径.
type StockResponse struct {
	Expected sim.EstimationResult `json:"expected"`
	Samples  []sim.SamplePath     `json:"samples,omitempty"`
	Seed     uint64               `json:"seed"`
}

// ProcessRequest 通用过程模拟请求.
type ProcessRequest struct {
	Process sim.ProcessParameters `json:"process"`
	Samples int                   `json:"samples" binding:"gte=0"`
	Simulation
}

// ProcessResponse 各时间点的集合均值与抽样路径.
type ProcessResponse struct {
	Dt      float64          `json:"dt"`
	Mean    []float64        `json:"mean"`
	Samples []sim.SamplePath `json:"samples,omitempty"`
	Seed    uint64           `json:"seed"`
}

// PortfolioRequest 组合优化请求. Prices 与 Returns 二选一，Prices 会先转换为对数收益.
type PortfolioRequest struct {
	Tickers            []string    `json:"tickers"`
	Prices             [][]float64 `json:"prices"`
	Returns            [][]float64 `json:"returns"`
	Portfolios         int         `json:"portfolios"          binding:"gte=0"`
	RoundTo            int32       `json:"round_to"            binding:"gte=0,lte=12"`
	IncludeExploration bool        `json:"include_exploration"`
	Seed               uint64      `json:"seed"`
}

// PortfolioResponse 优化结果.
type PortfolioResponse struct {
	Tickers     []string                    `json:"tickers,omitempty"`
	Weights     finance.WeightVector        `json:"weights"`
	Statistics  finance.PortfolioStatistics `json:"statistics"`
	Status      finance.Status              `json:"status"`
	Iterations  int                         `json:"iterations"`
	Tangency    finance.WeightVector        `json:"tangency,omitempty"`
	Exploration []finance.ExplorationPoint  `json:"exploration,omitempty"`
	Seed        uint64                      `json:"seed"`
}
