package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/quant/config"
	"github.com/wyfcoding/quant/engine"
	"github.com/wyfcoding/quant/logging"
	"github.com/wyfcoding/quant/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
	Detail string          `json:"detail"`
	Data   json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Portfolio.Portfolios = 200
	logger := logging.NewFromConfig(logging.Config{Service: "quant", Module: "test", Level: "error", Output: io.Discard})
	m := metrics.NewMetrics("quant-test")
	return NewRouter(engine.New(cfg, logger, m), cfg, logger, m)
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestHealthz(t *testing.T) {
	rec, env := do(t, newTestRouter(t), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || env.Code != 0 {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestBondEndpoint(t *testing.T) {
	r := newTestRouter(t)
	rec, env := do(t, r, http.MethodPost, "/v1/bond",
		`{"principal":1000,"r0":0.05,"maturity":2,"steps":100,"paths":20,"seed":9}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp engine.BondResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatal(err)
	}
	if want := 1000 * math.Exp(-0.1); math.Abs(resp.Estimate.Value-want) > 1e-6 {
		t.Errorf("bond = %v, want %v", resp.Estimate.Value, want)
	}
	if resp.Seed != 9 || resp.Estimate.Samples != 20 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestValidationErrors(t *testing.T) {
	r := newTestRouter(t)
	cases := []struct {
		name, path, body string
		wantCode         int
	}{
		{"malformed json", "/v1/option", `{"spot":`, 400002},
		{"binding", "/v1/var", `{"position":-1,"sigma":0.01,"confidence":0.95,"days":1}`, 400002},
		{"option type", "/v1/option", `{"type":"digital","spot":100,"strike":100,"maturity":1,"sigma":0.2}`, 400004},
		{"payoff", "/v1/option", `{"payoff":"S >","spot":100,"strike":100,"maturity":1,"sigma":0.2}`, 400006},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := do(t, r, http.MethodPost, tc.path, tc.body)
			if rec.Code != http.StatusBadRequest || env.Code != tc.wantCode {
				t.Errorf("status = %d code = %d, want 400/%d (%s)", rec.Code, env.Code, tc.wantCode, rec.Body.String())
			}
		})
	}
}

func TestPortfolioEndpoint(t *testing.T) {
	r := newTestRouter(t)
	body, _ := json.Marshal(map[string]any{
		"tickers": []string{"A", "B", "C"},
		"prices": [][]float64{
			{10, 20, 30}, {10.2, 19.8, 30.3}, {10.1, 20.1, 30.1}, {10.4, 20.0, 30.6},
			{10.3, 20.4, 30.2}, {10.6, 20.2, 30.9}, {10.5, 20.6, 30.5}, {10.8, 20.5, 31.1},
		},
		"seed":     3,
		"round_to": 3,
	})
	rec, env := do(t, r, http.MethodPost, "/v1/portfolio", string(body))
	if rec.Code != http.StatusOK && rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp engine.PortfolioResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Weights) != 3 {
		t.Fatalf("weights = %v", resp.Weights)
	}
	var sum float64
	for _, w := range resp.Weights {
		if w < 0 || w > 1 {
			t.Errorf("weight %v outside [0,1]", w)
		}
		sum += w
	}
	if math.Abs(sum-1) > 0.01 {
		t.Errorf("weights sum to %v", sum)
	}
}

func TestMetricsAndNotFound(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/v1/stock", `{"spot":10,"mu":0.001,"sigma":0.01,"days":5,"paths":10,"seed":1}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`quant_paths_simulated_total{operation="stock"} 10`)) {
		t.Errorf("metrics output missing stock paths:\n%s", rec.Body.String())
	}

	rec, env := do(t, r, http.MethodGet, "/v1/unknown", "")
	if rec.Code != http.StatusNotFound || env.Code != http.StatusNotFound {
		t.Errorf("status = %d, code = %d", rec.Code, env.Code)
	}
}

func TestRateLimitPerClient(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 1
	logger := logging.NewFromConfig(logging.Config{Service: "quant", Module: "test", Level: "error", Output: io.Discard})
	r := NewRouter(engine.New(cfg, logger, nil), cfg, logger, nil)

	body := `{"principal":1000,"r0":0.05,"maturity":1,"steps":10,"paths":10,"seed":1}`
	if rec, _ := do(t, r, http.MethodPost, "/v1/bond", body); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	if rec, _ := do(t, r, http.MethodPost, "/v1/bond", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
	if rec, _ := do(t, r, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz should not be rate limited, status = %d", rec.Code)
	}
}
