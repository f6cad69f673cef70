package models

// Bias is the directional classification assigned to a timeframe or to
// the aggregate.
type Bias string

const (
	BiasStrongBullish Bias = "strong_bullish"
	BiasBullish       Bias = "bullish"
	BiasNeutral       Bias = "neutral"
	BiasBearish       Bias = "bearish"
	BiasStrongBearish Bias = "strong_bearish"
)

// Trend classifies the price direction behind a bias.
type Trend string

const (
	TrendUp       Trend = "up"
	TrendDown     Trend = "down"
	TrendSideways Trend = "sideways"
)

// IndicatorSet is a snapshot of indicator values derived from exactly one
// series. ATR is nil when the series is too short to compute it honestly.
type IndicatorSet struct {
	Price   float64  `json:"price"`
	EMAFast float64  `json:"ema_fast"`
	EMASlow float64  `json:"ema_slow"`
	SMAFast float64  `json:"sma_fast"`
	SMASlow float64  `json:"sma_slow"`
	RSI     float64  `json:"rsi"`
	ATR     *float64 `json:"atr,omitempty"`
}

// TimeframeBias is the directional verdict for one timeframe. Bias and
// Strength are fully determined by Indicators plus current price.
type TimeframeBias struct {
	Timeframe  string       `json:"timeframe"`
	Bias       Bias         `json:"bias"`
	Strength   float64      `json:"strength"`
	Trend      Trend        `json:"trend"`
	Score      float64      `json:"score"`
	Indicators IndicatorSet `json:"indicators"`
}

// Factor is one contributing entry in an aggregate signal breakdown.
// Value and Explanation carry data, not prose.
type Factor struct {
	Name        string  `json:"factor"`
	Value       string  `json:"value"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// AggregateSignal fuses the per-timeframe biases into one overall verdict.
// Score always equals the sum of Factors[*].Score.
type AggregateSignal struct {
	Symbol       string          `json:"symbol"`
	OverallBias  Bias            `json:"overall_bias"`
	Score        float64         `json:"score"`
	AlignmentPct float64         `json:"alignment_percentage"`
	Factors      []Factor        `json:"contributing_factors"`
	Timeframes   []TimeframeBias `json:"timeframes"`
}
