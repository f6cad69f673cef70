package provider

import (
	"context"
	"fmt"
	"time"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/service/ratelimit"
	xhttp "TrendPulse/pkg/http"
)

// Yahoo fetches OHLC data from the Yahoo Finance chart API. Used as the
// fallback provider; it has no 4h resolution, so that timeframe is a
// declared unsupported failure rather than silently resampled data.
type Yahoo struct {
	baseURL string
	client  *xhttp.Client
	limiter *ratelimit.Limiter

	rateCapacity float64
	ratePerSec   float64
	symbolMap    map[string]string
}

// NewYahoo creates a Yahoo chart API provider.
func NewYahoo(baseURL string, timeout time.Duration, limiter *ratelimit.Limiter, rateCapacity, ratePerSec float64) *Yahoo {
	return &Yahoo{
		baseURL:      baseURL,
		client:       xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter:      limiter,
		rateCapacity: rateCapacity,
		ratePerSec:   ratePerSec,
		symbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) ticker(symbol string) string {
	if mapped, ok := y.symbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

func yahooInterval(tf drepo.Timeframe) (interval, barRange string, err error) {
	switch tf {
	case drepo.TF15m:
		return "15m", "5d", nil
	case drepo.TF1h:
		return "60m", "1mo", nil
	case drepo.TF1d:
		return "1d", "1y", nil
	default:
		return "", "", fmt.Errorf("yahoo: unsupported timeframe %s: %w", tf, models.ErrUpstreamFetch)
	}
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				ChartPreviousClose   float64 `json:"chartPreviousClose"`
				RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					High  []*float64 `json:"high"`
					Low   []*float64 `json:"low"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) allow() error {
	if y.limiter != nil && !y.limiter.Allow(y.Name(), y.rateCapacity, y.ratePerSec) {
		return fmt.Errorf("yahoo: rate limited: %w", models.ErrUpstreamFetch)
	}
	return nil
}

func (y *Yahoo) fetchChart(ctx context.Context, symbol string, interval, barRange string) (*yahooChart, error) {
	if err := y.allow(); err != nil {
		return nil, err
	}

	var out yahooChart
	err := y.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", y.baseURL, y.ticker(symbol)),
		QueryParams: map[string][]string{
			"interval": {interval},
			"range":    {barRange},
		},
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (compatible; trendpulse/1.0)",
		},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %v: %w", symbol, err, models.ErrUpstreamFetch)
	}
	if out.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s (%s): %w",
			symbol, out.Chart.Error.Description, out.Chart.Error.Code, models.ErrUpstreamFetch)
	}
	if len(out.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: no result: %w", symbol, models.ErrUpstreamFetch)
	}
	return &out, nil
}

// FetchSeries returns up to lookback bars ascending by time.
func (y *Yahoo) FetchSeries(ctx context.Context, symbol string, tf drepo.Timeframe, lookback int) (models.Series, error) {
	interval, barRange, err := yahooInterval(tf)
	if err != nil {
		return models.Series{}, err
	}

	out, err := y.fetchChart(ctx, symbol, interval, barRange)
	if err != nil {
		return models.Series{}, err
	}

	res := out.Chart.Result[0]
	if len(res.Timestamp) == 0 || len(res.Indicators.Quote) == 0 {
		return models.Series{}, fmt.Errorf("yahoo chart %s %s: %w", symbol, tf, models.ErrEmptySeries)
	}
	q := res.Indicators.Quote[0]

	bars := make([]models.Bar, 0, len(res.Timestamp))
	var prev int64
	for i, ts := range res.Timestamp {
		if ts <= prev {
			continue
		}
		// yahoo emits null columns for halted sessions; skip incomplete rows
		if i >= len(q.Open) || i >= len(q.High) || i >= len(q.Low) || i >= len(q.Close) {
			break
		}
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		prev = ts
		bars = append(bars, models.Bar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      *q.Open[i],
			High:      *q.High[i],
			Low:       *q.Low[i],
			Close:     *q.Close[i],
		})
	}
	if len(bars) == 0 {
		return models.Series{}, fmt.Errorf("yahoo chart %s %s: %w", symbol, tf, models.ErrEmptySeries)
	}
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}

	return models.Series{Symbol: symbol, Timeframe: string(tf), Bars: bars, FetchedAt: time.Now().UTC()}, nil
}

// FetchQuote builds a snapshot from the daily chart metadata.
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	out, err := y.fetchChart(ctx, symbol, "1d", "1d")
	if err != nil {
		return models.Quote{}, err
	}

	meta := out.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 {
		return models.Quote{}, fmt.Errorf("yahoo quote %s: empty payload: %w", symbol, models.ErrUpstreamFetch)
	}
	return models.Quote{
		Symbol:        symbol,
		Price:         meta.RegularMarketPrice,
		PreviousClose: meta.ChartPreviousClose,
		DayHigh:       meta.RegularMarketDayHigh,
		DayLow:        meta.RegularMarketDayLow,
		FetchedAt:     time.Now().UTC(),
	}, nil
}
