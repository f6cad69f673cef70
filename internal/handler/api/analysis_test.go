package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	icache "TrendPulse/internal/service/cache"
	"TrendPulse/internal/usecase"
	xlogger "TrendPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubProvider struct {
	series map[drepo.Timeframe]models.Series
	quote  models.Quote
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FetchSeries(ctx context.Context, symbol string, tf drepo.Timeframe, lookback int) (models.Series, error) {
	return p.series[tf], nil
}

func (p *stubProvider) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	return p.quote, nil
}

func flatSeries(tf drepo.Timeframe, n int) models.Series {
	bars := make([]models.Bar, n)
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 100 + float64(i)*0.5
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * tf.Duration()),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
		}
	}
	return models.Series{Symbol: "AAPL", Timeframe: string(tf), Bars: bars, FetchedAt: time.Now()}
}

func newTestHandler(t *testing.T) *AnalysisHandler {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	provider := &stubProvider{
		series: map[drepo.Timeframe]models.Series{
			drepo.TF15m: flatSeries(drepo.TF15m, 60),
			drepo.TF1h:  flatSeries(drepo.TF1h, 60),
			drepo.TF4h:  flatSeries(drepo.TF4h, 60),
			drepo.TF1d:  flatSeries(drepo.TF1d, 60),
		},
		quote: models.Quote{Symbol: "AAPL", Price: 130, PreviousClose: 129, FetchedAt: time.Now()},
	}
	analysis := usecase.NewAnalysisUseCase(provider, nil, icache.NewStore(), nil, log, usecase.DefaultOptions())
	return NewAnalysisHandler(log, analysis, usecase.NewSignalUseCase(analysis, log))
}

func doRequest(t *testing.T, h *AnalysisHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Cached      bool      `json:"cached"`
		Stale       bool      `json:"stale"`
		LastUpdated time.Time `json:"last_updated"`
	} `json:"meta"`
}

func TestBiasEndpoint(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, "/api/bias?symbol=AAPL&tf=1h")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Meta == nil {
		t.Fatal("missing meta")
	}
	if env.Meta.Cached || env.Meta.Stale {
		t.Fatalf("cold request misreported: %+v", env.Meta)
	}

	var tb models.TimeframeBias
	if err := json.Unmarshal(env.Data, &tb); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if tb.Timeframe != "1h" {
		t.Fatalf("timeframe = %q", tb.Timeframe)
	}
	if tb.Bias != models.BiasBullish {
		t.Fatalf("bias = %s for rising series", tb.Bias)
	}
}

func TestBiasEndpoint_RejectsUnknownTimeframe(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, "/api/bias?symbol=AAPL&tf=2h")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSignalEndpoint_RequiresSymbol(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, "/api/signal")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSignalEndpoint_ScoreEqualsFactorSum(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, "/api/signal?symbol=AAPL")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var sig models.AggregateSignal
	if err := json.Unmarshal(env.Data, &sig); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	var sum float64
	for _, f := range sig.Factors {
		sum += f.Score
	}
	if sig.Score != sum {
		t.Fatalf("score %v != factor sum %v", sig.Score, sum)
	}
	if len(sig.Timeframes) != 4 {
		t.Fatalf("timeframes = %d", len(sig.Timeframes))
	}
}

type memBytesCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBytesCache() *memBytesCache { return &memBytesCache{data: map[string][]byte{}} }

func (m *memBytesCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memBytesCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func TestSignalEndpoint_ReplayReportsCached(t *testing.T) {
	h := newTestHandler(t)
	h.SetResponseCache(newMemBytesCache())

	first := doRequest(t, h, "/api/signal?symbol=AAPL")
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, body %s", first.Code, first.Body.String())
	}
	var env1 envelope
	if err := json.Unmarshal(first.Body.Bytes(), &env1); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env1.Meta == nil || env1.Meta.Cached {
		t.Fatalf("cold request meta = %+v, want cached=false", env1.Meta)
	}

	second := doRequest(t, h, "/api/signal?symbol=AAPL")
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d", second.Code)
	}
	var env2 envelope
	if err := json.Unmarshal(second.Body.Bytes(), &env2); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env2.Meta == nil || !env2.Meta.Cached {
		t.Fatalf("replayed meta = %+v, want cached=true", env2.Meta)
	}
	if string(env2.Data) != string(env1.Data) {
		t.Fatal("replayed data differs from the rendered response")
	}
}

func TestQuoteEndpoint(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, "/api/quote?symbol=AAPL")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var q models.Quote
	if err := json.Unmarshal(env.Data, &q); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if q.Price != 130 {
		t.Fatalf("price = %v", q.Price)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
