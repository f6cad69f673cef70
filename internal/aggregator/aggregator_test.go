package aggregator

import (
	"math"
	"math/rand"
	"testing"

	"TrendPulse/internal/domain/models"
)

func frame(tf string, bias models.Bias) models.TimeframeBias {
	return models.TimeframeBias{Timeframe: tf, Bias: bias}
}

func factorSum(sig models.AggregateSignal) float64 {
	var sum float64
	for _, f := range sig.Factors {
		sum += f.Score
	}
	return sum
}

func TestAggregate_ScoreEqualsFactorSum(t *testing.T) {
	prev := 99.0
	rsi := 62.0
	sig := Aggregate("AAPL", []models.TimeframeBias{
		frame("15m", models.BiasBullish),
		frame("1h", models.BiasBullish),
		frame("4h", models.BiasBearish),
	}, Context{PrevClose: &prev, Price: 101, RSI: &rsi})

	if sig.Score != factorSum(sig) {
		t.Fatalf("score %v != factor sum %v", sig.Score, factorSum(sig))
	}
	// 20+20-20, no alignment, +10 prev close, +10 momentum
	if sig.Score != 40 {
		t.Fatalf("score = %v, want 40", sig.Score)
	}
}

func TestAggregate_UnanimousBullishAlignment(t *testing.T) {
	sig := Aggregate("AAPL", []models.TimeframeBias{
		frame("15m", models.BiasBullish),
		frame("1h", models.BiasBullish),
		frame("4h", models.BiasBullish),
	}, Context{})

	if sig.AlignmentPct != 100 {
		t.Fatalf("alignment = %v, want 100", sig.AlignmentPct)
	}
	found := false
	for _, f := range sig.Factors {
		if f.Name == "timeframe_alignment" {
			found = true
			if f.Score != 15 {
				t.Fatalf("alignment bonus = %v, want +15", f.Score)
			}
		}
	}
	if !found {
		t.Fatal("expected alignment bonus factor")
	}
	// 3*20 + 15 = 75 -> strong bullish
	if sig.Score != 75 || sig.OverallBias != models.BiasStrongBullish {
		t.Fatalf("score/bias = %v/%s, want 75/strong_bullish", sig.Score, sig.OverallBias)
	}
}

func TestAggregate_TwoOfThreeNoBonus(t *testing.T) {
	sig := Aggregate("AAPL", []models.TimeframeBias{
		frame("15m", models.BiasBullish),
		frame("1h", models.BiasBullish),
		frame("4h", models.BiasNeutral),
	}, Context{})

	want := 2.0 / 3.0 * 100
	if math.Abs(sig.AlignmentPct-want) > 1e-9 {
		t.Fatalf("alignment = %v, want %v", sig.AlignmentPct, want)
	}
	for _, f := range sig.Factors {
		if f.Name == "timeframe_alignment" {
			t.Fatal("unexpected alignment bonus without unanimity")
		}
	}
	if sig.Score != 40 || sig.OverallBias != models.BiasBullish {
		t.Fatalf("score/bias = %v/%s, want 40/bullish", sig.Score, sig.OverallBias)
	}
}

func TestAggregate_UnanimousBearish(t *testing.T) {
	sig := Aggregate("AAPL", []models.TimeframeBias{
		frame("15m", models.BiasBearish),
		frame("1h", models.BiasBearish),
		frame("4h", models.BiasBearish),
	}, Context{})
	if sig.Score != -75 || sig.OverallBias != models.BiasStrongBearish {
		t.Fatalf("score/bias = %v/%s, want -75/strong_bearish", sig.Score, sig.OverallBias)
	}
	if sig.AlignmentPct != 100 {
		t.Fatalf("alignment = %v, want 100", sig.AlignmentPct)
	}
}

func TestAggregate_AllNeutral(t *testing.T) {
	sig := Aggregate("AAPL", []models.TimeframeBias{
		frame("15m", models.BiasNeutral),
		frame("1h", models.BiasNeutral),
	}, Context{})
	if sig.Score != 0 || sig.OverallBias != models.BiasNeutral {
		t.Fatalf("score/bias = %v/%s, want 0/neutral", sig.Score, sig.OverallBias)
	}
	for _, f := range sig.Factors {
		if f.Score != 0 {
			t.Fatalf("neutral timeframe factor %s scored %v", f.Name, f.Score)
		}
	}
}

func TestMomentumScore_Zones(t *testing.T) {
	tests := []struct {
		rsi  float64
		want float64
	}{
		{80, -10}, // overbought penalizes momentum
		{70, -10},
		{60, 10},
		{55, 10},
		{50, 0},
		{46, 0},
		{40, -10},
		{31, -10},
		{30, 10}, // oversold penalizes bearish momentum
		{20, 10},
	}
	for _, tt := range tests {
		if got := momentumScore(tt.rsi); got != tt.want {
			t.Errorf("momentumScore(%v) = %v, want %v", tt.rsi, got, tt.want)
		}
	}
}

func TestAggregate_PrevCloseDirection(t *testing.T) {
	prev := 100.0
	above := Aggregate("AAPL", nil, Context{PrevClose: &prev, Price: 101})
	below := Aggregate("AAPL", nil, Context{PrevClose: &prev, Price: 99})
	if above.Score != 10 || below.Score != -10 {
		t.Fatalf("prev close scores = %v/%v, want +10/-10", above.Score, below.Score)
	}
}

func TestAggregate_ClampAndReconstruction(t *testing.T) {
	biases := []models.Bias{models.BiasBullish, models.BiasBearish, models.BiasNeutral}
	tfs := []string{"5m", "15m", "30m", "1h", "2h", "4h", "8h", "1d"}
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		n := r.Intn(len(tfs)) + 1
		frames := make([]models.TimeframeBias, 0, n)
		for j := 0; j < n; j++ {
			frames = append(frames, frame(tfs[j], biases[r.Intn(len(biases))]))
		}
		ctx := Context{Price: 100 + r.Float64()*10}
		if r.Intn(2) == 0 {
			pc := 100 + r.Float64()*10
			ctx.PrevClose = &pc
		}
		if r.Intn(2) == 0 {
			rsi := r.Float64() * 100
			ctx.RSI = &rsi
		}

		sig := Aggregate("X", frames, ctx)
		if sig.Score < -100 || sig.Score > 100 {
			t.Fatalf("score %v out of [-100,100]", sig.Score)
		}
		if sum := factorSum(sig); sig.Score != sum {
			t.Fatalf("score %v != factor sum %v", sig.Score, sum)
		}
	}
}

func TestAggregate_CapEmitsAdjustmentFactor(t *testing.T) {
	prev := 99.0
	rsi := 62.0
	sig := Aggregate("AAPL", []models.TimeframeBias{
		frame("15m", models.BiasBullish),
		frame("1h", models.BiasBullish),
		frame("4h", models.BiasBullish),
		frame("1d", models.BiasBullish),
	}, Context{PrevClose: &prev, Price: 101, RSI: &rsi})

	// 4*20 + 15 alignment + 10 prev close + 10 momentum = 115, capped
	if sig.Score != 100 {
		t.Fatalf("score = %v, want 100", sig.Score)
	}
	if sum := factorSum(sig); sig.Score != sum {
		t.Fatalf("score %v != factor sum %v", sig.Score, sum)
	}
	var adj *models.Factor
	for i, f := range sig.Factors {
		if f.Name == "scale_cap" {
			adj = &sig.Factors[i]
		}
	}
	if adj == nil {
		t.Fatal("expected scale_cap factor on an over-scale sum")
	}
	if adj.Score != -15 || adj.Value != "ceiling" {
		t.Fatalf("cap factor = %+v, want score -15 value ceiling", *adj)
	}
	if sig.OverallBias != models.BiasStrongBullish {
		t.Fatalf("bias = %s, want strong_bullish", sig.OverallBias)
	}
}

func TestAggregate_CapFloorOnBearishSweep(t *testing.T) {
	prev := 101.0
	rsi := 40.0
	sig := Aggregate("AAPL", []models.TimeframeBias{
		frame("15m", models.BiasBearish),
		frame("1h", models.BiasBearish),
		frame("4h", models.BiasBearish),
		frame("1d", models.BiasBearish),
	}, Context{PrevClose: &prev, Price: 99, RSI: &rsi})

	if sig.Score != -100 {
		t.Fatalf("score = %v, want -100", sig.Score)
	}
	if sum := factorSum(sig); sig.Score != sum {
		t.Fatalf("score %v != factor sum %v", sig.Score, sum)
	}
	for _, f := range sig.Factors {
		if f.Name == "scale_cap" && (f.Score != 15 || f.Value != "floor") {
			t.Fatalf("cap factor = %+v, want score +15 value floor", f)
		}
	}
}

func TestClassify_SymmetricThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  models.Bias
	}{
		{100, models.BiasStrongBullish},
		{60, models.BiasStrongBullish},
		{59, models.BiasBullish},
		{25, models.BiasBullish},
		{24, models.BiasNeutral},
		{0, models.BiasNeutral},
		{-24, models.BiasNeutral},
		{-25, models.BiasBearish},
		{-59, models.BiasBearish},
		{-60, models.BiasStrongBearish},
		{-100, models.BiasStrongBearish},
	}
	for _, tt := range tests {
		if got := classify(tt.score); got != tt.want {
			t.Errorf("classify(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestAggregate_EmptyFrames(t *testing.T) {
	sig := Aggregate("AAPL", nil, Context{})
	if sig.Score != 0 || sig.AlignmentPct != 0 || len(sig.Factors) != 0 {
		t.Fatalf("empty aggregate = %+v, want zero value", sig)
	}
}
