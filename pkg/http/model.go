package http

import "time"

// APIResponse is the standard response envelope.
type APIResponse struct {
	Status  int           `json:"status" example:"200"`
	Message string        `json:"message" example:"OK"`
	Data    interface{}   `json:"data,omitempty"`
	Meta    *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta reports how the payload was resolved. Stale means the
// value survived at least one failed refresh and LastUpdated tells the
// caller how old it actually is.
type ResponseMeta struct {
	Cached      bool      `json:"cached"`
	Stale       bool      `json:"stale"`
	LastUpdated time.Time `json:"last_updated"`
}

// ValidationError represents one failed request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"symbol"`
	Message string                 `json:"message,omitempty" example:"Symbol is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
