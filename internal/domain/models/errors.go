package models

import "errors"

var (
	// ErrInsufficientData indicates fewer data points than an indicator
	// strictly requires. Only indicators without a defined degraded
	// fallback (ATR) report it.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUpstreamFetch indicates a network, timeout, rate-limit or
	// malformed-response failure from an upstream provider.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrEmptySeries indicates an upstream answered successfully but
	// returned no bars. Distinct from a fetch failure.
	ErrEmptySeries = errors.New("empty series")

	// ErrPartialTimeframe indicates one of several required timeframes
	// could not be resolved, fresh or stale, during aggregation.
	ErrPartialTimeframe = errors.New("timeframe unavailable")
)
