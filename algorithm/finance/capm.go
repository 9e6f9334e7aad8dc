package finance

import (
	"github.com/wyfcoding/quant/xerrors"
	"gonum.org/v1/gonum/stat"
)

// CAPMResult 资本资产定价模型的回归结果.
type CAPMResult struct {
	Alpha          float64 `json:"alpha"`
	Beta           float64 `json:"beta"`
	ExpectedReturn float64 `json:"expected_return"`
}

// Beta 按协方差定义计算资产相对市场的 beta: cov(asset, market) / var(market).
func Beta(asset, market []float64) (float64, error) {
	if len(asset) != len(market) {
		return 0, xerrors.ErrDimMismatch.WithDetail("asset has %d returns, market has %d", len(asset), len(market))
	}
	if len(asset) < 2 {
		return 0, xerrors.ErrEmptyData.WithDetail("beta needs at least 2 observations")
	}
	v := stat.Variance(market, nil)
	if !(v > 0) {
		return 0, xerrors.ErrZeroVariance.WithDetail("market variance %v", v)
	}
	return stat.Covariance(asset, market, nil) / v, nil
}

// CAPM 以最小二乘回归 asset = alpha + beta*market 估计 beta，
// 并给出期望收益 rf + beta*(年化市场收益 - rf). periodsPerYear <= 0 时使用 252.
func CAPM(asset, market []float64, riskFree, periodsPerYear float64) (CAPMResult, error) {
	if _, err := Beta(asset, market); err != nil {
		return CAPMResult{}, err
	}
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}

	alpha, beta := stat.LinearRegression(market, asset, nil, false)
	marketReturn := stat.Mean(market, nil) * periodsPerYear
	return CAPMResult{
		Alpha:          alpha,
		Beta:           beta,
		ExpectedReturn: riskFree + beta*(marketReturn-riskFree),
	}, nil
}
