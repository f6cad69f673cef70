package aggregator

import (
	"fmt"

	"TrendPulse/internal/analyzer"
	"TrendPulse/internal/domain/models"
)

const (
	timeframeWeight = 20
	alignmentBonus  = 15
	prevCloseWeight = 10
	momentumWeight  = 10

	strongThreshold = 60
	biasThreshold   = 25
)

// Context carries the optional signals fused alongside the per-timeframe
// biases. Nil pointers mean the signal was not supplied.
type Context struct {
	PrevClose *float64 // previous day close, compared against Price
	Price     float64
	RSI       *float64 // standalone momentum reading
}

// Aggregate fuses an ordered list of timeframe biases (shortest first)
// plus optional context into one AggregateSignal. Pure computation over
// already-fetched values: no I/O, no retries. Score is always the exact
// sum of the emitted factor scores: when the raw sum leaves the
// [-100, 100] scale, the capping adjustment is emitted as a factor of
// its own so the total stays reconstructible from the breakdown.
func Aggregate(symbol string, frames []models.TimeframeBias, c Context) models.AggregateSignal {
	var total float64
	factors := make([]models.Factor, 0, len(frames)+4)

	var bulls, bears int
	for _, tb := range frames {
		var score float64
		switch tb.Bias {
		case models.BiasBullish:
			score = timeframeWeight
			bulls++
		case models.BiasBearish:
			score = -timeframeWeight
			bears++
		}
		total += score
		factors = append(factors, models.Factor{
			Name:        fmt.Sprintf("timeframe_%s", tb.Timeframe),
			Value:       string(tb.Bias),
			Score:       score,
			Explanation: analyzer.Summary(tb),
		})
	}

	alignment := alignmentPct(bulls, bears, len(frames))
	if len(frames) > 0 && (bulls == len(frames) || bears == len(frames)) {
		score := float64(alignmentBonus)
		value := "all_bullish"
		if bears == len(frames) {
			score = -alignmentBonus
			value = "all_bearish"
		}
		total += score
		factors = append(factors, models.Factor{
			Name:        "timeframe_alignment",
			Value:       value,
			Score:       score,
			Explanation: fmt.Sprintf("%d/%d timeframes agree", len(frames), len(frames)),
		})
	}

	if c.PrevClose != nil && *c.PrevClose != 0 {
		score := float64(prevCloseWeight)
		value := "above_prev_close"
		if c.Price <= *c.PrevClose {
			score = -prevCloseWeight
			value = "below_prev_close"
		}
		total += score
		factors = append(factors, models.Factor{
			Name:        "prev_day_close",
			Value:       value,
			Score:       score,
			Explanation: fmt.Sprintf("price=%.4f prev_close=%.4f", c.Price, *c.PrevClose),
		})
	}

	if c.RSI != nil {
		score := momentumScore(*c.RSI)
		total += score
		factors = append(factors, models.Factor{
			Name:        "rsi_momentum",
			Value:       momentumZone(*c.RSI),
			Score:       score,
			Explanation: fmt.Sprintf("rsi=%.2f", *c.RSI),
		})
	}

	if capped := clamp(total, -100, 100); capped != total {
		value := "ceiling"
		if capped > total {
			value = "floor"
		}
		factors = append(factors, models.Factor{
			Name:        "scale_cap",
			Value:       value,
			Score:       capped - total,
			Explanation: fmt.Sprintf("raw sum %.2f capped to the [-100, 100] scale", total),
		})
		total = capped
	}

	return models.AggregateSignal{
		Symbol:       symbol,
		OverallBias:  classify(total),
		Score:        total,
		AlignmentPct: alignment,
		Factors:      factors,
		Timeframes:   frames,
	}
}

// momentumScore applies the zone-based RSI table: overbought and oversold
// zones penalize the prevailing momentum instead of rewarding it.
func momentumScore(rsi float64) float64 {
	switch {
	case rsi >= 70:
		return -momentumWeight
	case rsi >= 55:
		return momentumWeight
	case rsi > 45:
		return 0
	case rsi > 30:
		return -momentumWeight
	default:
		return momentumWeight
	}
}

func momentumZone(rsi float64) string {
	switch {
	case rsi >= 70:
		return "overbought"
	case rsi >= 55:
		return "bullish"
	case rsi > 45:
		return "neutral"
	case rsi > 30:
		return "bearish"
	default:
		return "oversold"
	}
}

func alignmentPct(bulls, bears, total int) float64 {
	if total == 0 {
		return 0
	}
	if bulls == total || bears == total {
		return 100
	}
	major := bulls
	if bears > major {
		major = bears
	}
	return float64(major) / float64(total) * 100
}

func classify(score float64) models.Bias {
	switch {
	case score >= strongThreshold:
		return models.BiasStrongBullish
	case score >= biasThreshold:
		return models.BiasBullish
	case score <= -strongThreshold:
		return models.BiasStrongBearish
	case score <= -biasThreshold:
		return models.BiasBearish
	default:
		return models.BiasNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
