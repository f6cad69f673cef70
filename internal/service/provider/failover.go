package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/pkg/logger"
)

// Chain tries providers in priority order until one succeeds. A
// provider returning ErrEmptySeries ends the chain immediately: the
// upstream answered and the market genuinely has no data, so asking a
// second source would only produce a slower copy of the same answer.
type Chain struct {
	providers []drepo.MarketDataProvider
	log       *logger.Logger
	metrics   drepo.Metrics
}

// NewChain creates an ordered failover chain.
func NewChain(log *logger.Logger, metrics drepo.Metrics, providers ...drepo.MarketDataProvider) *Chain {
	return &Chain{providers: providers, log: log, metrics: metrics}
}

func (c *Chain) Name() string { return "chain" }

// FetchSeries fetches OHLC bars from the first provider that answers.
func (c *Chain) FetchSeries(ctx context.Context, symbol string, tf drepo.Timeframe, lookback int) (models.Series, error) {
	var errs []error
	for _, p := range c.providers {
		start := time.Now()
		series, err := p.FetchSeries(ctx, symbol, tf, lookback)
		c.observe(p.Name(), start, err)
		if err == nil {
			return series, nil
		}
		if errors.Is(err, models.ErrEmptySeries) {
			return models.Series{}, err
		}
		c.log.Warn("provider series fetch failed",
			logger.String("provider", p.Name()),
			logger.String("symbol", symbol),
			logger.String("timeframe", string(tf)),
			logger.Error(err))
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}
	return models.Series{}, fmt.Errorf("all providers failed for %s %s: %w", symbol, tf, errors.Join(errs...))
}

// FetchQuote fetches a snapshot quote from the first provider that answers.
func (c *Chain) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	var errs []error
	for _, p := range c.providers {
		start := time.Now()
		quote, err := p.FetchQuote(ctx, symbol)
		c.observe(p.Name(), start, err)
		if err == nil {
			return quote, nil
		}
		c.log.Warn("provider quote fetch failed",
			logger.String("provider", p.Name()),
			logger.String("symbol", symbol),
			logger.Error(err))
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}
	return models.Quote{}, fmt.Errorf("all providers failed for %s: %w", symbol, errors.Join(errs...))
}

func (c *Chain) observe(provider string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordFetchLatency(provider, time.Since(start).Seconds())
	if err != nil && !errors.Is(err, models.ErrEmptySeries) {
		c.metrics.RecordFetchError(provider)
	}
}
