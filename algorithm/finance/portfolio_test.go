package finance

import (
	"errors"
	"math"
	"testing"

	"github.com/wyfcoding/quant/xerrors"
)

// twoAssetRows 构造均值与协方差已知的两资产收益: 标准化冲击在 (±1, ±1) 上循环，
// 因而样本均值精确等于 m，样本协方差与 s1, s2, rho 成比例.
func twoAssetRows(n int, m1, m2, s1, s2, rho float64) [][]float64 {
	shocks := [4][2]float64{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	rows := make([][]float64, n)
	for i := range rows {
		z := shocks[i%4]
		rows[i] = []float64{
			m1 + s1*z[0],
			m2 + s2*(rho*z[0]+math.Sqrt(1-rho*rho)*z[1]),
		}
	}
	return rows
}

func mustSeries(t *testing.T, rows [][]float64) *ReturnSeries {
	t.Helper()
	rs, err := NewReturnSeries(rows, 0)
	if err != nil {
		t.Fatalf("NewReturnSeries: %v", err)
	}
	return rs
}

func TestNewReturnSeriesValidation(t *testing.T) {
	cases := []struct {
		name string
		rows [][]float64
		want error
	}{
		{"single row", [][]float64{{0.1, 0.2}}, xerrors.ErrEmptyData},
		{"no assets", [][]float64{{}, {}}, xerrors.ErrEmptyData},
		{"ragged", [][]float64{{0.1, 0.2}, {0.1}}, xerrors.ErrDimMismatch},
		{"nan", [][]float64{{0.1, math.NaN()}, {0.1, 0.2}}, xerrors.ErrInvalidParams},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewReturnSeries(tc.rows, 252); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReturnSeriesMoments(t *testing.T) {
	rs := mustSeries(t, twoAssetRows(400, 0.0008, 0.0004, 0.02, 0.01, 0.3))
	if rs.PeriodsPerYear() != DefaultPeriodsPerYear {
		t.Errorf("periods = %v", rs.PeriodsPerYear())
	}
	mean := rs.Mean()
	if math.Abs(mean[0]-0.0008) > 1e-12 || math.Abs(mean[1]-0.0004) > 1e-12 {
		t.Errorf("mean = %v", mean)
	}
	cov := rs.Covariance()
	scale := 400.0 / 399.0
	if got, want := cov.At(0, 0), 0.0004*scale; math.Abs(got-want) > 1e-12 {
		t.Errorf("var0 = %v, want %v", got, want)
	}
	if got, want := cov.At(0, 1), 0.02*0.01*0.3*scale; math.Abs(got-want) > 1e-12 {
		t.Errorf("cov01 = %v, want %v", got, want)
	}

	cov.SetSym(0, 0, 1)
	if rs.Covariance().At(0, 0) == 1 {
		t.Errorf("Covariance exposed internal state")
	}
}

func TestLogReturns(t *testing.T) {
	rows, err := LogReturns([][]float64{{100, 50}, {110, 50}, {99, 25}})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if math.Abs(rows[0][0]-math.Log(1.1)) > 1e-15 || rows[0][1] != 0 {
		t.Errorf("row 0 = %v", rows[0])
	}
	if math.Abs(rows[1][1]-math.Log(0.5)) > 1e-15 {
		t.Errorf("row 1 = %v", rows[1])
	}

	if _, err := LogReturns([][]float64{{1}, {0}}); !errors.Is(err, xerrors.ErrInvalidParams) {
		t.Errorf("zero price err = %v", err)
	}
	if _, err := LogReturns([][]float64{{1, 2}}); !errors.Is(err, xerrors.ErrEmptyData) {
		t.Errorf("single row err = %v", err)
	}
}

func TestStatistics(t *testing.T) {
	rs := mustSeries(t, twoAssetRows(400, 0.0008, 0.0004, 0.02, 0.01, 0.3))
	w := WeightVector{0.5, 0.5}
	stats, err := Statistics(w, rs)
	if err != nil {
		t.Fatal(err)
	}

	wantRet := (0.5*0.0008 + 0.5*0.0004) * 252
	cov := rs.Covariance()
	wantVar := (0.25*cov.At(0, 0) + 0.25*cov.At(1, 1) + 0.5*cov.At(0, 1)) * 252
	if math.Abs(stats.Return-wantRet) > 1e-12 {
		t.Errorf("return = %v, want %v", stats.Return, wantRet)
	}
	if math.Abs(stats.Volatility-math.Sqrt(wantVar)) > 1e-12 {
		t.Errorf("volatility = %v, want %v", stats.Volatility, math.Sqrt(wantVar))
	}
	if math.Abs(stats.Sharpe-stats.Return/stats.Volatility) > 1e-12 {
		t.Errorf("sharpe = %v", stats.Sharpe)
	}

	if _, err := Statistics(WeightVector{1}, rs); !errors.Is(err, xerrors.ErrDimMismatch) {
		t.Errorf("short weights err = %v", err)
	}
}

func TestStatisticsPermutationInvariant(t *testing.T) {
	rows := [][]float64{
		{0.010, -0.004, 0.002},
		{-0.006, 0.012, 0.001},
		{0.003, 0.001, -0.007},
		{0.008, -0.002, 0.004},
		{-0.001, 0.005, 0.006},
	}
	perm := []int{2, 0, 1}
	permuted := make([][]float64, len(rows))
	for i, row := range rows {
		permuted[i] = make([]float64, len(row))
		for j, k := range perm {
			permuted[i][j] = row[k]
		}
	}
	w := WeightVector{0.2, 0.5, 0.3}
	pw := make(WeightVector, len(w))
	for j, k := range perm {
		pw[j] = w[k]
	}

	a, err := Statistics(w, mustSeries(t, rows))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Statistics(pw, mustSeries(t, permuted))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a.Return-b.Return) > 1e-12 || math.Abs(a.Volatility-b.Volatility) > 1e-12 || math.Abs(a.Sharpe-b.Sharpe) > 1e-9 {
		t.Errorf("permuted statistics differ: %+v vs %+v", a, b)
	}
}

func TestStatisticsZeroVariance(t *testing.T) {
	rs := mustSeries(t, [][]float64{{0.01, 0.02}, {0.01, 0.02}, {0.01, 0.02}})
	_, err := Statistics(WeightVector{0.5, 0.5}, rs)
	if !errors.Is(err, xerrors.ErrZeroVariance) {
		t.Errorf("err = %v, want ErrZeroVariance", err)
	}
}
