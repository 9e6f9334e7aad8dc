// Package finance 组合统计、均值-方差优化与解析定价公式.
package finance

import (
	"math"

	"github.com/wyfcoding/quant/xerrors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultPeriodsPerYear 日频交易数据的年化因子.
const DefaultPeriodsPerYear = 252

// WeightVector 各资产的配置比例，顺序与 ReturnSeries 的列一致.
type WeightVector []float64

// PortfolioStatistics 年化收益、年化波动率与夏普比率.
type PortfolioStatistics struct {
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
	Sharpe     float64 `json:"sharpe"`
}

// ReturnSeries 按时间对齐的多资产对数收益矩阵 (行: 周期, 列: 资产).
// 均值与样本协方差在构造时计算一次，之后只读.
type ReturnSeries struct {
	data           *mat.Dense
	mean           []float64
	cov            *mat.SymDense
	periodsPerYear float64
}

// NewReturnSeries 由收益行构造序列. periodsPerYear <= 0 时使用 252.
func NewReturnSeries(rows [][]float64, periodsPerYear float64) (*ReturnSeries, error) {
	if len(rows) < 2 {
		return nil, xerrors.ErrEmptyData.WithDetail("return series needs at least 2 rows, got %d", len(rows))
	}
	assets := len(rows[0])
	if assets == 0 {
		return nil, xerrors.ErrEmptyData.WithDetail("return series has no assets")
	}
	if periodsPerYear <= 0 || math.IsNaN(periodsPerYear) || math.IsInf(periodsPerYear, 0) {
		periodsPerYear = DefaultPeriodsPerYear
	}

	data := mat.NewDense(len(rows), assets, nil)
	for i, row := range rows {
		if len(row) != assets {
			return nil, xerrors.ErrDimMismatch.WithDetail("row %d has %d columns, want %d", i, len(row), assets)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, xerrors.ErrInvalidParams.WithDetail("non-finite return at row %d column %d", i, j)
			}
		}
		data.SetRow(i, row)
	}

	mean := make([]float64, assets)
	col := make([]float64, len(rows))
	for j := range assets {
		mat.Col(col, j, data)
		mean[j] = stat.Mean(col, nil)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	return &ReturnSeries{
		data:           data,
		mean:           mean,
		cov:            &cov,
		periodsPerYear: periodsPerYear,
	}, nil
}

// Assets 返回资产数量.
func (r *ReturnSeries) Assets() int {
	return len(r.mean)
}

// Periods 返回观测周期数.
func (r *ReturnSeries) Periods() int {
	rows, _ := r.data.Dims()
	return rows
}

// PeriodsPerYear 返回年化因子.
func (r *ReturnSeries) PeriodsPerYear() float64 {
	return r.periodsPerYear
}

// Mean 返回各资产单周期平均收益的副本.
func (r *ReturnSeries) Mean() []float64 {
	return append([]float64(nil), r.mean...)
}

// Covariance 返回单周期样本协方差矩阵的副本.
func (r *ReturnSeries) Covariance() *mat.SymDense {
	out := mat.NewSymDense(r.Assets(), nil)
	out.CopySym(r.cov)
	return out
}

// LogReturns 把对齐的价格行转换为对数收益行 log(p_t / p_{t-1}).
func LogReturns(prices [][]float64) ([][]float64, error) {
	if len(prices) < 2 {
		return nil, xerrors.ErrEmptyData.WithDetail("need at least 2 price rows, got %d", len(prices))
	}
	assets := len(prices[0])
	if assets == 0 {
		return nil, xerrors.ErrEmptyData.WithDetail("price rows have no assets")
	}

	out := make([][]float64, len(prices)-1)
	for i, row := range prices {
		if len(row) != assets {
			return nil, xerrors.ErrDimMismatch.WithDetail("price row %d has %d columns, want %d", i, len(row), assets)
		}
		for j, p := range row {
			if !(p > 0) || math.IsInf(p, 0) {
				return nil, xerrors.ErrInvalidParams.WithDetail("price at row %d column %d must be positive, got %v", i, j, p)
			}
		}
		if i == 0 {
			continue
		}
		ret := make([]float64, assets)
		for j := range ret {
			ret[j] = math.Log(row[j] / prices[i-1][j])
		}
		out[i-1] = ret
	}

	return out, nil
}

// Statistics 计算组合的年化统计量:
// 收益 = sum(w*mean)*P, 波动率 = sqrt(w' Cov w * P), 夏普 = 收益/波动率.
// 波动率为 0 时返回 ErrZeroVariance.
func Statistics(weights WeightVector, returns *ReturnSeries) (PortfolioStatistics, error) {
	if returns == nil {
		return PortfolioStatistics{}, xerrors.ErrEmptyData.WithDetail("nil return series")
	}
	if len(weights) != returns.Assets() {
		return PortfolioStatistics{}, xerrors.ErrDimMismatch.WithDetail("got %d weights for %d assets", len(weights), returns.Assets())
	}
	if floats.HasNaN(weights) {
		return PortfolioStatistics{}, xerrors.ErrInvalidParams.WithDetail("weights contain NaN")
	}

	p := returns.periodsPerYear
	ret := floats.Dot(weights, returns.mean) * p

	w := mat.NewVecDense(len(weights), weights)
	variance := mat.Inner(w, returns.cov, w) * p
	if !(variance > 0) || math.IsInf(variance, 0) {
		return PortfolioStatistics{}, xerrors.ErrZeroVariance.WithDetail("portfolio variance %v", variance)
	}

	vol := math.Sqrt(variance)
	return PortfolioStatistics{Return: ret, Volatility: vol, Sharpe: ret / vol}, nil
}
