package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation(t *testing.T) {
	m := NewMetrics("quant-test")

	m.ObserveOperation("bond", time.Now(), nil)
	m.ObserveOperation("bond", time.Now(), nil)
	m.ObserveOperation("bond", time.Now(), errors.New("bad"))

	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("bond", "ok")); got != 2 {
		t.Errorf("ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("bond", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestAddPathsAndIterations(t *testing.T) {
	m := NewMetrics("quant-test")
	m.AddPaths("option", 1000)
	m.AddPaths("option", 0)
	m.ObserveIterations(17)

	if got := testutil.ToFloat64(m.PathsSimulated.WithLabelValues("option")); got != 1000 {
		t.Errorf("paths = %v, want 1000", got)
	}
	if n := testutil.CollectAndCount(m.OptimizerIterations); n != 1 {
		t.Errorf("iterations histogram series = %d, want 1", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("var", time.Now(), nil)
	m.AddPaths("var", 10)
	m.ObserveIterations(3)
	m.RegisterBuildInfo("quant", "dev")
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics("quant-test")
	m.RegisterBuildInfo("quant", "1.0.0")
	m.AddPaths("stock", 5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{"quant_build_info", "quant_paths_simulated_total", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
