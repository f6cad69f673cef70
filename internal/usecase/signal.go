package usecase

import (
	"context"
	"fmt"
	"sync"

	"TrendPulse/internal/aggregator"
	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/service/cache"
	"TrendPulse/pkg/logger"
)

// SignalUseCase fuses the per-timeframe pipeline into one aggregate
// signal. All configured timeframes resolve concurrently; a single
// unresolvable timeframe fails the whole aggregate, because a verdict
// over a subset would silently change meaning.
type SignalUseCase struct {
	analysis *AnalysisUseCase
	log      *logger.Logger
}

func NewSignalUseCase(analysis *AnalysisUseCase, log *logger.Logger) *SignalUseCase {
	return &SignalUseCase{analysis: analysis, log: log}
}

type frameResult struct {
	idx  int
	tb   models.TimeframeBias
	meta cache.Meta
	err  error
}

// GetSignal computes the aggregate signal for symbol. The returned Meta
// reports the weakest link: stale if any input was stale, cached only
// if every input was, and the oldest input's computation time.
func (uc *SignalUseCase) GetSignal(ctx context.Context, symbol string) (models.AggregateSignal, cache.Meta, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.analysis.opts.Timeout)
	defer cancel()

	tfs := uc.analysis.opts.Timeframes
	ch := make(chan frameResult, len(tfs))
	var wg sync.WaitGroup

	for i, tf := range tfs {
		wg.Add(1)
		go func(i int, tf drepo.Timeframe) {
			defer wg.Done()
			tb, meta, err := uc.analysis.TimeframeBias(ctx, symbol, tf)
			ch <- frameResult{idx: i, tb: tb, meta: meta, err: err}
		}(i, tf)
	}

	go func() { wg.Wait(); close(ch) }()

	frames := make([]models.TimeframeBias, len(tfs))
	metas := make([]cache.Meta, len(tfs))
	var failed []string
	for r := range ch {
		if r.err != nil {
			uc.log.Warn("timeframe unresolved",
				logger.String("symbol", symbol),
				logger.String("timeframe", string(tfs[r.idx])),
				logger.Error(r.err))
			failed = append(failed, string(tfs[r.idx]))
			continue
		}
		frames[r.idx] = r.tb
		metas[r.idx] = r.meta
	}
	if len(failed) > 0 {
		return models.AggregateSignal{}, cache.Meta{}, fmt.Errorf("timeframes %v unresolved for %s: %w", failed, symbol, models.ErrPartialTimeframe)
	}

	aggCtx := aggregator.Context{Price: uc.analysis.livePrice(symbol, freshestPrice(frames))}

	// best-effort enrichment; a missing quote drops the factor, not the signal
	if quote, _, err := uc.analysis.Quote(ctx, symbol); err == nil {
		if quote.PreviousClose != 0 {
			pc := quote.PreviousClose
			aggCtx.PrevClose = &pc
		}
		if aggCtx.Price == 0 {
			aggCtx.Price = quote.Price
		}
	} else {
		uc.log.Warn("quote unavailable for aggregate", logger.String("symbol", symbol), logger.Error(err))
	}

	if rsi, ok := momentumRSI(frames); ok {
		aggCtx.RSI = &rsi
	}

	signal := aggregator.Aggregate(symbol, frames, aggCtx)
	return signal, combineMeta(metas), nil
}

// momentumRSI picks the daily RSI reading, falling back to the longest
// resolved timeframe. Reusing the daily reading is deliberate: the
// timeframe factor scores it linearly against 50 while the momentum
// factor scores its zone, where overbought and oversold count against
// the trend, so the two factors can disagree on the same value.
func momentumRSI(frames []models.TimeframeBias) (float64, bool) {
	if len(frames) == 0 {
		return 0, false
	}
	for _, tb := range frames {
		if tb.Timeframe == string(drepo.TF1d) {
			return tb.Indicators.RSI, true
		}
	}
	return frames[len(frames)-1].Indicators.RSI, true
}

// freshestPrice takes the shortest timeframe's close; frames are ordered
// shortest first.
func freshestPrice(frames []models.TimeframeBias) float64 {
	for _, tb := range frames {
		if tb.Indicators.Price != 0 {
			return tb.Indicators.Price
		}
	}
	return 0
}

func combineMeta(metas []cache.Meta) cache.Meta {
	if len(metas) == 0 {
		return cache.Meta{}
	}
	out := cache.Meta{Cached: true, ComputedAt: metas[0].ComputedAt}
	for _, m := range metas {
		if !m.Cached {
			out.Cached = false
		}
		if m.Stale {
			out.Stale = true
		}
		if m.ComputedAt.Before(out.ComputedAt) {
			out.ComputedAt = m.ComputedAt
		}
	}
	return out
}
