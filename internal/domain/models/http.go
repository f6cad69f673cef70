package models

// Requests for analysis HTTP endpoints. Defined in domain for consistency and reuse.

type SignalRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type BiasRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1h" validate:"oneof=15m 1h 4h 1d"`
}

type IndicatorsRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	TF       string `query:"tf" json:"tf" default:"1h" validate:"oneof=15m 1h 4h 1d"`
	Lookback int    `query:"lookback" json:"lookback" default:"120" validate:"gte=30,lte=1000"`
}

type PivotsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type QuoteRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}
