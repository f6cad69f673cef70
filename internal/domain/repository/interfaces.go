package repository

import (
	"context"

	"TrendPulse/internal/domain/models"
)

// MarketDataProvider fetches raw OHLC and quote data from one named
// upstream. Implementations may fail, rate-limit, or return fewer bars
// than requested; bars are always ordered ascending by time. An empty
// but valid result is signalled as models.ErrEmptySeries, distinct from
// a fetch failure.
type MarketDataProvider interface {
	Name() string
	FetchSeries(ctx context.Context, symbol string, tf Timeframe, lookback int) (models.Series, error)
	FetchQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// QuoteStream maintains a live last-traded-price feed per symbol.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	LastPrice(symbol string) (float64, bool)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records operational counters for the analysis pipeline.
type Metrics interface {
	RecordCacheHit(endpoint string)
	RecordCacheMiss(endpoint string)
	RecordStaleServe(endpoint string)
	RecordFetchError(provider string)
	RecordFetchLatency(provider string, seconds float64)
	RecordLastPrice(symbol string, price float64)
}
