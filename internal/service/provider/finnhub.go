package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/service/ratelimit"
	xhttp "TrendPulse/pkg/http"
	"TrendPulse/pkg/util"
)

// Finnhub fetches OHLC candles and quotes from the Finnhub REST API.
type Finnhub struct {
	apiKey  string
	baseURL string
	client  *xhttp.Client
	limiter *ratelimit.Limiter

	rateCapacity float64
	ratePerSec   float64
}

// NewFinnhub creates a Finnhub market data provider.
func NewFinnhub(apiKey, baseURL string, timeout time.Duration, limiter *ratelimit.Limiter, rateCapacity, ratePerSec float64) *Finnhub {
	return &Finnhub{
		apiKey:       apiKey,
		baseURL:      baseURL,
		client:       xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter:      limiter,
		rateCapacity: rateCapacity,
		ratePerSec:   ratePerSec,
	}
}

func (f *Finnhub) Name() string { return "finnhub" }

func resolution(tf drepo.Timeframe) string {
	switch tf {
	case drepo.TF15m:
		return "15"
	case drepo.TF1h:
		return "60"
	case drepo.TF4h:
		return "240"
	case drepo.TF1d:
		return "D"
	default:
		return "60"
	}
}

type fhCandles struct {
	Status string    `json:"s"`
	T      []int64   `json:"t"`
	O      []float64 `json:"o"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	C      []float64 `json:"c"`
}

type fhQuote struct {
	Current   float64 `json:"c"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Open      float64 `json:"o"`
	PrevClose float64 `json:"pc"`
	T         int64   `json:"t"`
}

func (f *Finnhub) allow() error {
	if f.limiter != nil && !f.limiter.Allow(f.Name(), f.rateCapacity, f.ratePerSec) {
		return fmt.Errorf("finnhub: rate limited: %w", models.ErrUpstreamFetch)
	}
	return nil
}

// FetchSeries returns up to lookback bars ending now, ascending by time.
func (f *Finnhub) FetchSeries(ctx context.Context, symbol string, tf drepo.Timeframe, lookback int) (models.Series, error) {
	if err := f.allow(); err != nil {
		return models.Series{}, err
	}

	now := time.Now()
	// aligned window keeps repeated fetches within one bar on the same URL
	from, _ := util.AlignFromTo(now.Add(-time.Duration(lookback+1)*tf.Duration()), now, tf.Duration())

	var out fhCandles
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    f.baseURL + "/stock/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {resolution(tf)},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(now.Unix(), 10)},
			"token":      {f.apiKey},
		},
	}, &out)
	if err != nil {
		return models.Series{}, fmt.Errorf("finnhub candles %s %s: %v: %w", symbol, tf, err, models.ErrUpstreamFetch)
	}

	if out.Status == "no_data" {
		return models.Series{}, fmt.Errorf("finnhub candles %s %s: %w", symbol, tf, models.ErrEmptySeries)
	}
	if out.Status != "ok" || len(out.T) == 0 {
		return models.Series{}, fmt.Errorf("finnhub candles %s %s: status %q: %w", symbol, tf, out.Status, models.ErrUpstreamFetch)
	}
	if len(out.O) != len(out.T) || len(out.H) != len(out.T) || len(out.L) != len(out.T) || len(out.C) != len(out.T) {
		return models.Series{}, fmt.Errorf("finnhub candles %s %s: ragged columns: %w", symbol, tf, models.ErrUpstreamFetch)
	}

	bars := make([]models.Bar, 0, len(out.T))
	var prev int64
	for i := range out.T {
		if out.T[i] <= prev {
			// upstream occasionally repeats the forming bar; drop it
			continue
		}
		prev = out.T[i]
		bars = append(bars, models.Bar{
			Timestamp: time.Unix(out.T[i], 0).UTC(),
			Open:      out.O[i],
			High:      out.H[i],
			Low:       out.L[i],
			Close:     out.C[i],
		})
	}
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}

	return models.Series{Symbol: symbol, Timeframe: string(tf), Bars: bars, FetchedAt: now.UTC()}, nil
}

// FetchQuote returns a single-point snapshot for symbol.
func (f *Finnhub) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	if err := f.allow(); err != nil {
		return models.Quote{}, err
	}

	var out fhQuote
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    f.baseURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {f.apiKey},
		},
	}, &out)
	if err != nil {
		return models.Quote{}, fmt.Errorf("finnhub quote %s: %v: %w", symbol, err, models.ErrUpstreamFetch)
	}
	if out.Current == 0 && out.PrevClose == 0 {
		return models.Quote{}, fmt.Errorf("finnhub quote %s: empty payload: %w", symbol, models.ErrUpstreamFetch)
	}

	return models.Quote{
		Symbol:        symbol,
		Price:         out.Current,
		PreviousClose: out.PrevClose,
		DayHigh:       out.High,
		DayLow:        out.Low,
		FetchedAt:     time.Now().UTC(),
	}, nil
}
