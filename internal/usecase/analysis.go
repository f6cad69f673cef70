package usecase

import (
	"context"
	"fmt"
	"time"

	"TrendPulse/internal/analyzer"
	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/indicator"
	"TrendPulse/internal/service/cache"
	"TrendPulse/pkg/logger"
)

// TTLConfig sets the refresh interval per class of cached computation.
// Quotes churn fastest; pivot levels only change once per session.
type TTLConfig struct {
	Quote    time.Duration
	Intraday time.Duration
	Daily    time.Duration
	Macro    time.Duration
}

// DefaultTTL returns the refresh intervals used by the dashboard.
func DefaultTTL() TTLConfig {
	return TTLConfig{
		Quote:    1 * time.Minute,
		Intraday: 2 * time.Minute,
		Daily:    15 * time.Minute,
		Macro:    24 * time.Hour,
	}
}

// Options configures the analysis pipeline for one product surface.
type Options struct {
	Timeframes []drepo.Timeframe
	Lookback   int
	Periods    indicator.Periods
	Weights    analyzer.WeightTable
	TTL        TTLConfig
	Timeout    time.Duration
}

// DefaultOptions returns the dashboard configuration.
func DefaultOptions() Options {
	return Options{
		Timeframes: []drepo.Timeframe{drepo.TF15m, drepo.TF1h, drepo.TF4h, drepo.TF1d},
		Lookback:   120,
		Periods:    indicator.DefaultPeriods(),
		Weights:    analyzer.DashboardTable(),
		TTL:        DefaultTTL(),
		Timeout:    10 * time.Second,
	}
}

// AnalysisUseCase runs the fetch, derive and score pipeline for one
// (symbol, timeframe) pair behind the staleness cache. Every public
// method resolves through the cache, so upstream outages degrade to
// stale answers instead of errors once a first value exists.
type AnalysisUseCase struct {
	provider drepo.MarketDataProvider
	stream   drepo.QuoteStream
	store    *cache.Store
	metrics  drepo.Metrics
	log      *logger.Logger
	opts     Options
}

// NewAnalysisUseCase wires the pipeline. stream and metrics may be nil.
func NewAnalysisUseCase(provider drepo.MarketDataProvider, stream drepo.QuoteStream, store *cache.Store, metrics drepo.Metrics, log *logger.Logger, opts Options) *AnalysisUseCase {
	return &AnalysisUseCase{
		provider: provider,
		stream:   stream,
		store:    store,
		metrics:  metrics,
		log:      log,
		opts:     opts,
	}
}

func (uc *AnalysisUseCase) seriesTTL(tf drepo.Timeframe) time.Duration {
	if tf.Intraday() {
		return uc.opts.TTL.Intraday
	}
	return uc.opts.TTL.Daily
}

func (uc *AnalysisUseCase) observe(endpoint string, meta cache.Meta) {
	if uc.metrics == nil {
		return
	}
	if meta.Cached {
		uc.metrics.RecordCacheHit(endpoint)
	} else {
		uc.metrics.RecordCacheMiss(endpoint)
	}
	if meta.Stale {
		uc.metrics.RecordStaleServe(endpoint)
	}
}

// livePrice prefers the streaming last trade over the series close.
func (uc *AnalysisUseCase) livePrice(symbol string, fallback float64) float64 {
	if uc.stream != nil && uc.stream.IsConnected() {
		if p, ok := uc.stream.LastPrice(symbol); ok {
			return p
		}
	}
	return fallback
}

func (uc *AnalysisUseCase) fetchSeries(ctx context.Context, symbol string, tf drepo.Timeframe, lookback int) (models.Series, error) {
	series, err := uc.provider.FetchSeries(ctx, symbol, tf, lookback)
	if err != nil {
		return models.Series{}, err
	}
	if series.Len() == 0 {
		return models.Series{}, fmt.Errorf("%s %s: %w", symbol, tf, models.ErrEmptySeries)
	}
	return series, nil
}

// TimeframeBias computes the directional verdict for one timeframe.
func (uc *AnalysisUseCase) TimeframeBias(ctx context.Context, symbol string, tf drepo.Timeframe) (models.TimeframeBias, cache.Meta, error) {
	key := fmt.Sprintf("bias:%s:%s", symbol, tf)
	tb, meta, err := cache.GetOrCompute(ctx, uc.store, key, uc.seriesTTL(tf), func(ctx context.Context) (models.TimeframeBias, error) {
		series, err := uc.fetchSeries(ctx, symbol, tf, uc.opts.Lookback)
		if err != nil {
			return models.TimeframeBias{}, err
		}
		set, err := indicator.Snapshot(series, uc.opts.Periods)
		if err != nil {
			return models.TimeframeBias{}, err
		}
		price := uc.livePrice(symbol, series.LastClose())
		return analyzer.Analyze(string(tf), set, price, uc.opts.Weights), nil
	})
	uc.observe("bias", meta)
	return tb, meta, err
}

// Indicators computes the raw indicator snapshot for one timeframe.
// A non-default lookback bypasses the shared cache key so callers
// cannot poison each other's windows.
func (uc *AnalysisUseCase) Indicators(ctx context.Context, symbol string, tf drepo.Timeframe, lookback int) (models.IndicatorSet, cache.Meta, error) {
	if lookback <= 0 {
		lookback = uc.opts.Lookback
	}
	key := fmt.Sprintf("indicators:%s:%s:%d", symbol, tf, lookback)
	set, meta, err := cache.GetOrCompute(ctx, uc.store, key, uc.seriesTTL(tf), func(ctx context.Context) (models.IndicatorSet, error) {
		series, err := uc.fetchSeries(ctx, symbol, tf, lookback)
		if err != nil {
			return models.IndicatorSet{}, err
		}
		return indicator.Snapshot(series, uc.opts.Periods)
	})
	uc.observe("indicators", meta)
	return set, meta, err
}

// Quote returns a cached point-in-time snapshot for symbol.
func (uc *AnalysisUseCase) Quote(ctx context.Context, symbol string) (models.Quote, cache.Meta, error) {
	key := fmt.Sprintf("quote:%s", symbol)
	q, meta, err := cache.GetOrCompute(ctx, uc.store, key, uc.opts.TTL.Quote, func(ctx context.Context) (models.Quote, error) {
		return uc.provider.FetchQuote(ctx, symbol)
	})
	uc.observe("quote", meta)
	if err == nil {
		// live trades beat the cached snapshot price; q is a copy
		q.Price = uc.livePrice(symbol, q.Price)
	}
	return q, meta, err
}

// Pivots derives classic pivot levels from the last completed daily bar.
func (uc *AnalysisUseCase) Pivots(ctx context.Context, symbol string) (models.PivotLevels, cache.Meta, error) {
	key := fmt.Sprintf("pivots:%s", symbol)
	pv, meta, err := cache.GetOrCompute(ctx, uc.store, key, uc.opts.TTL.Macro, func(ctx context.Context) (models.PivotLevels, error) {
		series, err := uc.fetchSeries(ctx, symbol, drepo.TF1d, 3)
		if err != nil {
			return models.PivotLevels{}, err
		}
		// last completed session, not the forming one
		bar := series.Bars[series.Len()-1]
		today := time.Now().UTC().Truncate(24 * time.Hour)
		if series.Len() >= 2 && !bar.Timestamp.Before(today) {
			bar = series.Bars[series.Len()-2]
		}
		return indicator.ClassicPivots(bar.High, bar.Low, bar.Close), nil
	})
	uc.observe("pivots", meta)
	return pv, meta, err
}
