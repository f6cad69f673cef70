package indicator

import (
	"fmt"
	"math"

	"TrendPulse/internal/domain/models"
)

// Stateless transforms from price sequences to scalar indicator values.
// No rounding happens here; callers round at the presentation boundary
// to avoid compounding error across recurrences.

const (
	DefaultRSIPeriod = 14
	DefaultATRPeriod = 14
)

// SMA returns the arithmetic mean of the last period closes. With fewer
// closes than period it degrades to the mean of all available closes
// rather than failing.
func SMA(closes []float64, period int) float64 {
	if len(closes) == 0 {
		return 0
	}
	if period <= 0 || len(closes) < period {
		return mean(closes)
	}
	return mean(closes[len(closes)-period:])
}

// EMA seeds with the SMA of the first period closes and applies the
// standard recurrence for the remainder. Same short-input degradation
// as SMA.
func EMA(closes []float64, period int) float64 {
	if len(closes) == 0 {
		return 0
	}
	if period <= 0 || len(closes) < period {
		return mean(closes)
	}
	multiplier := 2.0 / float64(period+1)
	ema := mean(closes[:period])
	for i := period; i < len(closes); i++ {
		ema = (closes[i]-ema)*multiplier + ema
	}
	return ema
}

// RSI computes the Relative Strength Index with Wilder's smoothing.
// Fewer than period+1 closes yield the neutral value 50; a zero average
// loss yields 100.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ATR returns the mean of the last period true ranges. Unlike SMA/EMA/RSI
// there is no degraded fallback: a misleading ATR would corrupt downstream
// volatility classification, so short input is an error.
func ATR(bars []models.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("atr: invalid period %d", period)
	}
	if len(bars) < period+1 {
		return 0, fmt.Errorf("atr: need %d bars, have %d: %w", period+1, len(bars), models.ErrInsufficientData)
	}

	ranges := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-prevClose), math.Abs(bars[i].Low-prevClose)))
		ranges = append(ranges, tr)
	}
	return mean(ranges[len(ranges)-period:]), nil
}

// ClassicPivots derives floor-trader pivot levels from the prior
// session's high, low and close.
func ClassicPivots(high, low, close float64) models.PivotLevels {
	pp := (high + low + close) / 3
	return models.PivotLevels{
		PP: pp,
		R1: 2*pp - low,
		S1: 2*pp - high,
		R2: pp + (high - low),
		S2: pp - (high - low),
		R3: high + 2*(pp-low),
		S3: low - 2*(high-pp),
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
