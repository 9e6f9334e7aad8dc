package finance

import (
	"errors"
	"math"
	"testing"

	"github.com/wyfcoding/quant/algorithm/sim"
	"github.com/wyfcoding/quant/xerrors"
)

// twoAssetTangency 两资产切点组合中第一项资产的权重.
func twoAssetTangency(rs *ReturnSeries) float64 {
	mu := rs.Mean()
	cov := rs.Covariance()
	v1, v2, c := cov.At(0, 0), cov.At(1, 1), cov.At(0, 1)
	return (mu[0]*v2 - mu[1]*c) / (mu[0]*v2 + mu[1]*v1 - (mu[0]+mu[1])*c)
}

func checkSimplex(t *testing.T, w WeightVector) {
	t.Helper()
	var sum float64
	for i, v := range w {
		if v < 0 || v > 1 {
			t.Errorf("w[%d] = %v outside [0,1]", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("weights sum to %v", sum)
	}
}

func TestOptimizeMatchesTangencyPortfolio(t *testing.T) {
	rs := mustSeries(t, twoAssetRows(400, 0.0008, 0.0004, 0.02, 0.01, 0.3))
	opt := NewOptimizer(WithPortfolios(500), WithWorkers(4))

	res, points, err := opt.Optimize(rs, sim.NewGenerator(42))
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(points) != 500 {
		t.Errorf("exploration points = %d", len(points))
	}
	if res.Status != StatusConverged {
		t.Errorf("status = %s", res.Status)
	}
	checkSimplex(t, res.Weights)

	want := twoAssetTangency(rs)
	if math.Abs(want-1.0/3) > 1e-9 {
		t.Fatalf("closed form w1 = %v, want 1/3", want)
	}
	if math.Abs(res.Weights[0]-want) > 1e-3 {
		t.Errorf("w1 = %v, want %v", res.Weights[0], want)
	}

	tangency, err := TangencyPortfolio(rs)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(tangency[0]-want) > 1e-9 {
		t.Errorf("Cholesky tangency w1 = %v, want %v", tangency[0], want)
	}

	for _, p := range points {
		if p.Statistics.Sharpe > res.Statistics.Sharpe+1e-9 {
			t.Errorf("exploration point %v beats optimum %v", p.Statistics.Sharpe, res.Statistics.Sharpe)
		}
	}
}

func TestOptimizeIsDeterministic(t *testing.T) {
	rs := mustSeries(t, twoAssetRows(200, 0.0006, 0.0005, 0.015, 0.012, -0.2))
	opt := NewOptimizer(WithPortfolios(100), WithWorkers(3))

	a, _, err := opt.Optimize(rs, sim.NewGenerator(7))
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := opt.Optimize(rs, sim.NewGenerator(7))
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Weights {
		if a.Weights[i] != b.Weights[i] {
			t.Errorf("run weights differ: %v vs %v", a.Weights, b.Weights)
		}
	}
	if a.Iterations != b.Iterations {
		t.Errorf("iterations differ: %d vs %d", a.Iterations, b.Iterations)
	}
}

func TestRefineCornerSolution(t *testing.T) {
	rs := mustSeries(t, twoAssetRows(400, 0.0008, -0.0004, 0.02, 0.01, 0.3))
	res, err := NewOptimizer().Refine(rs, WeightVector{0.5, 0.5})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	checkSimplex(t, res.Weights)
	if math.Abs(res.Weights[0]-1) > 1e-6 {
		t.Errorf("weights = %v, want [1 0]", res.Weights)
	}
}

func TestRefineReportsNonConvergence(t *testing.T) {
	rs := mustSeries(t, twoAssetRows(400, 0.0008, 0.0004, 0.02, 0.01, 0.3))
	res, err := NewOptimizer(WithMaxIterations(1)).Refine(rs, WeightVector{0.95, 0.05})
	if !errors.Is(err, xerrors.ErrNotConverged) {
		t.Fatalf("err = %v, want ErrNotConverged", err)
	}
	if res == nil || res.Status != StatusNotConverged {
		t.Fatalf("result = %+v", res)
	}
	checkSimplex(t, res.Weights)
}

func TestRefineRejectsBadSeed(t *testing.T) {
	rs := mustSeries(t, twoAssetRows(8, 0.001, 0.002, 0.01, 0.01, 0))
	if _, err := NewOptimizer().Refine(rs, WeightVector{1}); !errors.Is(err, xerrors.ErrDimMismatch) {
		t.Errorf("err = %v, want ErrDimMismatch", err)
	}
}

func TestExploreOrderAndSimplex(t *testing.T) {
	rs := mustSeries(t, twoAssetRows(40, 0.001, 0.002, 0.01, 0.02, 0.1))
	opt := NewOptimizer(WithPortfolios(64), WithWorkers(8))
	a, err := opt.Explore(rs, sim.NewGenerator(5))
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewOptimizer(WithPortfolios(64), WithWorkers(1)).Explore(rs, sim.NewGenerator(5))
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		checkSimplex(t, a[i].Weights)
		if a[i].Statistics != b[i].Statistics {
			t.Fatalf("point %d differs between worker counts", i)
		}
	}
}

func TestSharpeGradientMatchesFiniteDifference(t *testing.T) {
	rs := mustSeries(t, [][]float64{
		{0.010, -0.004, 0.002},
		{-0.006, 0.012, 0.001},
		{0.003, 0.001, -0.007},
		{0.008, -0.002, 0.004},
		{-0.001, 0.005, 0.006},
	})
	w := []float64{0.2, 0.5, 0.3}
	stats, err := Statistics(w, rs)
	if err != nil {
		t.Fatal(err)
	}
	grad := make([]float64, 3)
	sharpeGradient(grad, w, stats, rs)

	const h = 1e-6
	for i := range w {
		up := append([]float64(nil), w...)
		down := append([]float64(nil), w...)
		up[i] += h
		down[i] -= h
		su, _ := Statistics(up, rs)
		sd, _ := Statistics(down, rs)
		fd := (su.Sharpe - sd.Sharpe) / (2 * h)
		if math.Abs(fd-grad[i]) > 1e-4*math.Max(1, math.Abs(fd)) {
			t.Errorf("grad[%d] = %v, finite difference %v", i, grad[i], fd)
		}
	}
}

func TestProjectSimplex(t *testing.T) {
	cases := []struct {
		in, want []float64
	}{
		{[]float64{0.2, 0.8}, []float64{0.2, 0.8}},
		{[]float64{2, 0}, []float64{1, 0}},
		{[]float64{0.5, 0.5, 0.5}, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}},
		{[]float64{-1, 0.3, 0.9}, []float64{0, 0.2, 0.8}},
	}
	for _, tc := range cases {
		got := projectSimplex(tc.in)
		for i := range got {
			if math.Abs(got[i]-tc.want[i]) > 1e-12 {
				t.Errorf("projectSimplex(%v) = %v, want %v", tc.in, got, tc.want)
				break
			}
		}
	}
}

func TestMinimumVariancePortfolio(t *testing.T) {
	rs := mustSeries(t, twoAssetRows(400, 0.0008, 0.0004, 0.02, 0.01, 0))
	w, err := MinimumVariancePortfolio(rs)
	if err != nil {
		t.Fatal(err)
	}
	// 无相关时权重与方差成反比: (1/4e-4) : (1/1e-4) = 1 : 4.
	if math.Abs(w[0]-0.2) > 1e-9 {
		t.Errorf("w = %v, want [0.2 0.8]", w)
	}

	flat := mustSeries(t, [][]float64{{0.01, 0.02}, {0.01, 0.02}, {0.01, 0.02}})
	if _, err := TangencyPortfolio(flat); !errors.Is(err, xerrors.ErrNotPositiveDefinite) {
		t.Errorf("singular covariance err = %v", err)
	}
}

func TestRounded(t *testing.T) {
	r := &OptimizationResult{Weights: WeightVector{1.0 / 3, 2.0 / 3}}
	got := r.Rounded(2)
	if got[0] != 0.33 || got[1] != 0.67 {
		t.Errorf("Rounded(2) = %v", got)
	}
	if r.Weights[0] == 0.33 {
		t.Errorf("Rounded modified the result")
	}
}
