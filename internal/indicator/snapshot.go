package indicator

import (
	"errors"

	"TrendPulse/internal/domain/models"
)

// Periods configures the indicator snapshot for one product surface.
type Periods struct {
	EMAFast int
	EMASlow int
	SMAFast int
	SMASlow int
	RSI     int
	ATR     int
}

// DefaultPeriods returns the periods used by the dashboard surface.
func DefaultPeriods() Periods {
	return Periods{EMAFast: 9, EMASlow: 21, SMAFast: 20, SMASlow: 50, RSI: DefaultRSIPeriod, ATR: DefaultATRPeriod}
}

// Snapshot derives an IndicatorSet from one series. ATR is omitted when
// the series is too short; any other ATR error is surfaced.
func Snapshot(s models.Series, p Periods) (models.IndicatorSet, error) {
	closes := s.Closes()
	set := models.IndicatorSet{
		Price:   s.LastClose(),
		EMAFast: EMA(closes, p.EMAFast),
		EMASlow: EMA(closes, p.EMASlow),
		SMAFast: SMA(closes, p.SMAFast),
		SMASlow: SMA(closes, p.SMASlow),
		RSI:     RSI(closes, p.RSI),
	}
	atr, err := ATR(s.Bars, p.ATR)
	switch {
	case err == nil:
		set.ATR = &atr
	case errors.Is(err, models.ErrInsufficientData):
		// degraded snapshot without volatility
	default:
		return models.IndicatorSet{}, err
	}
	return set, nil
}
