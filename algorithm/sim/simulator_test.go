package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/wyfcoding/quant/xerrors"
)

// mustParams 用法: mustParams(t)(NewBrownian(...)).
func mustParams(t *testing.T) func(ProcessParameters, error) ProcessParameters {
	t.Helper()
	return func(p ProcessParameters, err error) ProcessParameters {
		t.Helper()
		if err != nil {
			t.Fatalf("invalid parameters: %v", err)
		}
		return p
	}
}

func TestValidateRejectsBadParameters(t *testing.T) {
	cases := []struct {
		name string
		p    ProcessParameters
	}{
		{"zero steps", ProcessParameters{Kind: KindBrownian, Sigma: 1, Horizon: 1, Steps: 0}},
		{"negative sigma", ProcessParameters{Kind: KindBrownian, Sigma: -0.1, Horizon: 1, Steps: 10}},
		{"zero horizon", ProcessParameters{Kind: KindBrownian, Sigma: 0.1, Horizon: 0, Steps: 10}},
		{"negative kappa", ProcessParameters{Kind: KindMeanReverting, Kappa: -1, Sigma: 0.1, Horizon: 1, Steps: 10}},
		{"unknown kind", ProcessParameters{Kind: "heston", Sigma: 0.1, Horizon: 1, Steps: 10}},
		{"nan theta", ProcessParameters{Kind: KindMeanReverting, Theta: math.NaN(), Sigma: 0.1, Horizon: 1, Steps: 10}},
		{"inf initial", ProcessParameters{Kind: KindBrownian, Initial: math.Inf(1), Sigma: 0.1, Horizon: 1, Steps: 10}},
		{"gbm non-positive spot", ProcessParameters{Kind: KindGeometricBrownian, Initial: 0, Sigma: 0.1, Horizon: 1, Steps: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.p.Validate(); !errors.Is(err, xerrors.ErrInvalidParams) {
				t.Errorf("Validate() = %v, want ErrInvalidParams", err)
			}
		})
	}

	if _, err := NewMeanReverting(0.1, 0.3, 0.3, -0.03, 1, 200); err == nil {
		t.Errorf("constructor accepted negative volatility")
	}
}

func TestSimulatePathsRejectsBeforeDrawing(t *testing.T) {
	gen := NewGenerator(5)
	s := NewSimulator(gen)
	before := NewGenerator(5).Normal()

	if _, err := s.SimulatePaths(ProcessParameters{Kind: KindBrownian, Horizon: 1, Steps: 0}, 10); err == nil {
		t.Fatal("expected error for zero steps")
	}
	p := mustParams(t)(NewBrownian(0, 1, 1, 10))
	if _, err := s.SimulatePaths(p, 0); !errors.Is(err, xerrors.ErrInvalidParams) {
		t.Fatalf("numPaths=0 err = %v", err)
	}
	if got := gen.Normal(); got != before {
		t.Errorf("rejected calls consumed random draws")
	}
}

func TestZeroVolatilityIsDeterministic(t *testing.T) {
	p := mustParams(t)(NewMeanReverting(0.1, 0.3, 0.3, 0, 1, 50))
	ens, err := NewSimulator(NewGenerator(11)).SimulatePaths(p, 20)
	if err != nil {
		t.Fatal(err)
	}
	first := ens.Path(0)
	for i := 1; i < ens.Len(); i++ {
		path := ens.Path(i)
		for j := range path {
			if path[j] != first[j] {
				t.Fatalf("path %d step %d = %v, want %v", i, j, path[j], first[j])
			}
		}
	}
	if first[0] != 0.1 {
		t.Errorf("x[0] = %v, want initial value", first[0])
	}
	dt := p.Dt()
	want := 0.1 + 0.3*(0.3-0.1)*dt
	if math.Abs(first[1]-want) > 1e-15 {
		t.Errorf("x[1] = %v, want %v", first[1], want)
	}
}

func TestSingleStepPathIsInitialValue(t *testing.T) {
	for _, p := range []ProcessParameters{
		mustParams(t)(NewBrownian(2.5, 1, 1, 1)),
		mustParams(t)(NewGeometricBrownian(100, 0.05, 0.2, 1, 1)),
		mustParams(t)(NewMeanReverting(0.1, 1, 0.2, 0.1, 1, 1)),
	} {
		path, err := NewSimulator(NewGenerator(1)).SimulatePath(p)
		if err != nil {
			t.Fatal(err)
		}
		if len(path) != 1 || path[0] != p.Initial {
			t.Errorf("%s path = %v, want [%v]", p.Kind, path, p.Initial)
		}
	}
}

func TestGeometricBrownianExactScheme(t *testing.T) {
	p := mustParams(t)(NewGeometricBrownian(100, 0.05, 0, 2, 10))
	path, err := NewSimulator(NewGenerator(2)).SimulatePath(p)
	if err != nil {
		t.Fatal(err)
	}
	dt := p.Dt()
	for i, x := range path {
		want := 100 * math.Exp(0.05*float64(i)*dt)
		if math.Abs(x-want) > 1e-9 {
			t.Errorf("x[%d] = %v, want %v", i, x, want)
		}
	}
}

func TestMeanRevertingApproachesTheta(t *testing.T) {
	for _, kappa := range []float64{1, 2} {
		p := mustParams(t)(NewMeanReverting(0, kappa, 0.5, 0.1, 10, 1000))
		ens, err := NewSimulator(NewGenerator(17)).SimulatePaths(p, 500)
		if err != nil {
			t.Fatal(err)
		}
		if got := ens.MeanAt(ens.Steps() - 1); math.Abs(got-0.5) > 0.02 {
			t.Errorf("kappa=%v terminal mean = %v, want ~0.5", kappa, got)
		}
	}
}

func TestParallelGenerationIsDeterministic(t *testing.T) {
	p := mustParams(t)(NewBrownian(1, 0.3, 1, 20))
	run := func() *PathEnsemble {
		ens, err := NewSimulator(NewGenerator(99), WithWorkers(4)).SimulatePaths(p, 1000)
		if err != nil {
			t.Fatal(err)
		}
		return ens
	}
	a, b := run(), run()
	ta, tb := a.Terminal(), b.Terminal()
	for i := range ta {
		if ta[i] != tb[i] {
			t.Fatalf("terminal %d differs: %v vs %v", i, ta[i], tb[i])
		}
	}
	if m := a.MeanAt(a.Steps() - 1); math.Abs(m-1) > 0.05 {
		t.Errorf("brownian terminal mean = %v, want ~1", m)
	}
}

func TestSimulateTerminal(t *testing.T) {
	s := NewSimulator(NewGenerator(4))
	bm := mustParams(t)(NewBrownian(0, 1, 1, 10))
	if _, err := s.SimulateTerminal(bm, 10); !errors.Is(err, xerrors.ErrInvalidParams) {
		t.Errorf("non-gbm err = %v, want ErrInvalidParams", err)
	}

	p := mustParams(t)(NewGeometricBrownian(100, 0.05, 0.2, 1, 1))
	ens, err := s.SimulateTerminal(p, 50000)
	if err != nil {
		t.Fatal(err)
	}
	if ens.Steps() != 1 || ens.Len() != 50000 {
		t.Fatalf("shape = %dx%d", ens.Len(), ens.Steps())
	}
	want := 100 * math.Exp(0.05)
	if got := ens.MeanAt(0); math.Abs(got-want) > 0.5 {
		t.Errorf("terminal mean = %v, want ~%v", got, want)
	}
}

func TestEnsembleAccessorsReturnCopies(t *testing.T) {
	p := mustParams(t)(NewBrownian(0, 1, 1, 5))
	ens, err := NewSimulator(NewGenerator(6)).SimulatePaths(p, 3)
	if err != nil {
		t.Fatal(err)
	}
	path := ens.Path(1)
	orig := path[2]
	path[2] = 1e9
	if ens.Path(1)[2] != orig {
		t.Errorf("mutating a returned path changed the ensemble")
	}
	term := ens.Terminal()
	term[0] = 1e9
	if ens.Path(0).Terminal() == 1e9 {
		t.Errorf("mutating terminal values changed the ensemble")
	}
}

func TestEnsembleSample(t *testing.T) {
	paths := make([]SamplePath, 10)
	for i := range paths {
		paths[i] = SamplePath{float64(i), float64(i)}
	}
	ens, err := NewPathEnsemble(paths, 1)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ens.Sample(3, NewGenerator(8))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("sampled %d paths, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i][0] <= got[i-1][0] {
			t.Errorf("samples not distinct and ordered: %v", got)
		}
	}

	all, err := ens.Sample(50, NewGenerator(8))
	if err != nil || len(all) != 10 {
		t.Errorf("Sample(50) = %d paths, %v", len(all), err)
	}
	if _, err := ens.Sample(0, NewGenerator(8)); !errors.Is(err, xerrors.ErrInvalidParams) {
		t.Errorf("Sample(0) err = %v", err)
	}

	if _, err := NewPathEnsemble([]SamplePath{{1, 2}, {1}}, 1); !errors.Is(err, xerrors.ErrDimMismatch) {
		t.Errorf("ragged ensemble err = %v, want ErrDimMismatch", err)
	}
}
