package analyzer

import (
	"testing"

	"TrendPulse/internal/domain/models"
	"TrendPulse/internal/indicator"
)

func TestAnalyze_AllBullishFactors(t *testing.T) {
	set := models.IndicatorSet{Price: 105, EMAFast: 103, EMASlow: 101, RSI: 62}
	tb := Analyze("1h", set, 105, DashboardTable())
	if tb.Score != 100 {
		t.Fatalf("score = %v, want 100", tb.Score)
	}
	if tb.Bias != models.BiasBullish || tb.Trend != models.TrendUp {
		t.Fatalf("bias/trend = %s/%s, want bullish/up", tb.Bias, tb.Trend)
	}
	if tb.Strength != 100 {
		t.Fatalf("strength = %v, want 100", tb.Strength)
	}
}

func TestAnalyze_AllBearishFactors(t *testing.T) {
	set := models.IndicatorSet{Price: 95, EMAFast: 97, EMASlow: 99, RSI: 38}
	tb := Analyze("4h", set, 95, DashboardTable())
	if tb.Score != -100 {
		t.Fatalf("score = %v, want -100", tb.Score)
	}
	if tb.Bias != models.BiasBearish || tb.Trend != models.TrendDown {
		t.Fatalf("bias/trend = %s/%s, want bearish/down", tb.Bias, tb.Trend)
	}
}

func TestAnalyze_MixedIsNeutral(t *testing.T) {
	// bullish EMA ordering, price between EMAs, bearish RSI: 40+20-20-20 = 20
	set := models.IndicatorSet{Price: 102, EMAFast: 101, EMASlow: 103, RSI: 45}
	tb := Analyze("1h", set, 102, DashboardTable())
	if tb.Score != 20 {
		t.Fatalf("score = %v, want 20", tb.Score)
	}
	if tb.Bias != models.BiasNeutral || tb.Trend != models.TrendSideways {
		t.Fatalf("bias/trend = %s/%s, want neutral/sideways", tb.Bias, tb.Trend)
	}
	if tb.Strength != 20 {
		t.Fatalf("strength = %v, want |score| = 20", tb.Strength)
	}
}

func TestAnalyze_RSIExactlyFiftyScoresZero(t *testing.T) {
	set := models.IndicatorSet{Price: 105, EMAFast: 103, EMASlow: 101, RSI: 50}
	tb := Analyze("1h", set, 105, DashboardTable())
	if tb.Score != 80 {
		t.Fatalf("score = %v, want 80 (no RSI contribution)", tb.Score)
	}
}

func TestAnalyze_ThresholdBoundaries(t *testing.T) {
	wt := DashboardTable()

	// ordering +40, price above both EMAs +40, rsi -20 => +60
	set := models.IndicatorSet{Price: 100, EMAFast: 99, EMASlow: 98, RSI: 40}
	tb := Analyze("1h", set, 100, wt)
	if tb.Score != 60 || tb.Bias != models.BiasBullish {
		t.Fatalf("score/bias = %v/%s, want 60/bullish", tb.Score, tb.Bias)
	}

	// exactly at the +40 boundary: ordering +40, price between EMAs
	// (-20+20 = 0), rsi neutral
	set = models.IndicatorSet{Price: 100, EMAFast: 101, EMASlow: 99, RSI: 50}
	tb = Analyze("1h", set, 100, wt)
	if tb.Score != 40 {
		t.Fatalf("score = %v, want 40", tb.Score)
	}
	if tb.Bias != models.BiasBullish {
		t.Fatalf("score 40 must classify bullish, got %s", tb.Bias)
	}
}

func TestAnalyze_Determinism(t *testing.T) {
	set := models.IndicatorSet{Price: 102.5, EMAFast: 101.2, EMASlow: 100.9, RSI: 55.5}
	a := Analyze("15m", set, 102.5, DashboardTable())
	b := Analyze("15m", set, 102.5, DashboardTable())
	if a != b {
		t.Fatalf("identical inputs produced different results: %+v vs %+v", a, b)
	}
}

func TestAnalyze_EndToEndRisingTail(t *testing.T) {
	// 19 flat closes then a five-bar rise; 24 points total.
	closes := make([]float64, 0, 24)
	for i := 0; i < 19; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 101, 102, 103, 104, 105)

	set := models.IndicatorSet{
		Price:   closes[len(closes)-1],
		EMAFast: indicator.EMA(closes, 10),
		EMASlow: indicator.EMA(closes, 20),
		SMAFast: indicator.SMA(closes, 10),
		SMASlow: indicator.SMA(closes, 20),
		RSI:     indicator.RSI(closes, 14),
	}
	if set.RSI != 100 {
		t.Fatalf("RSI over rising tail = %v, want 100", set.RSI)
	}
	if set.EMAFast <= set.EMASlow {
		t.Fatalf("fast EMA (%v) should lead slow EMA (%v) on a rise", set.EMAFast, set.EMASlow)
	}

	tb := Analyze("1h", set, set.Price, DashboardTable())
	// ordering +40, price above both EMAs +40, RSI +20
	if tb.Score != 100 {
		t.Fatalf("score = %v, want exactly 100", tb.Score)
	}
	if tb.Bias != models.BiasBullish {
		t.Fatalf("bias = %s, want bullish", tb.Bias)
	}
}
