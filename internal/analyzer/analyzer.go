package analyzer

import (
	"fmt"

	"TrendPulse/internal/domain/models"
)

// WeightTable fixes the additive scoring weights for one product surface.
// Exactly one table is used per aggregate; mixing tables within a single
// signal would make the breakdown unauditable.
type WeightTable struct {
	Tag              string
	EMAOrdering      float64
	PriceVsFastEMA   float64
	PriceVsSlowEMA   float64
	RSIConfirmation  float64
	BullishThreshold float64
	BearishThreshold float64
}

// DashboardTable is the canonical table for the dashboard surface.
// Linear RSI treatment; thresholds symmetric at +-40.
func DashboardTable() WeightTable {
	return WeightTable{
		Tag:              "dashboard",
		EMAOrdering:      40,
		PriceVsFastEMA:   20,
		PriceVsSlowEMA:   20,
		RSIConfirmation:  20,
		BullishThreshold: 40,
		BearishThreshold: -40,
	}
}

// Analyze turns one indicator snapshot plus current price into a
// TimeframeBias. Pure function: identical inputs always yield an
// identical result.
func Analyze(tf string, set models.IndicatorSet, price float64, wt WeightTable) models.TimeframeBias {
	var score float64

	if set.EMAFast > set.EMASlow {
		score += wt.EMAOrdering
	} else {
		score -= wt.EMAOrdering
	}

	if price > set.EMAFast {
		score += wt.PriceVsFastEMA
	} else {
		score -= wt.PriceVsFastEMA
	}

	if price > set.EMASlow {
		score += wt.PriceVsSlowEMA
	} else {
		score -= wt.PriceVsSlowEMA
	}

	switch {
	case set.RSI > 50:
		score += wt.RSIConfirmation
	case set.RSI < 50:
		score -= wt.RSIConfirmation
	}

	bias := models.BiasNeutral
	trend := models.TrendSideways
	switch {
	case score >= wt.BullishThreshold:
		bias = models.BiasBullish
		trend = models.TrendUp
	case score <= wt.BearishThreshold:
		bias = models.BiasBearish
		trend = models.TrendDown
	}

	strength := score
	if strength < 0 {
		strength = -strength
	}

	return models.TimeframeBias{
		Timeframe:  tf,
		Bias:       bias,
		Strength:   strength,
		Trend:      trend,
		Score:      score,
		Indicators: set,
	}
}

// Summary renders the data behind a bias for factor explanations.
func Summary(tb models.TimeframeBias) string {
	return fmt.Sprintf("ema_fast=%.4f ema_slow=%.4f rsi=%.2f price=%.4f",
		tb.Indicators.EMAFast, tb.Indicators.EMASlow, tb.Indicators.RSI, tb.Indicators.Price)
}
