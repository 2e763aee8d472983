// Package types holds the JSON envelopes every storefront and admin endpoint
// answers with.
package types

// SuccessEnvelope wraps a payload such as the cart, the configurator view or a
// placed order.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the body of a rejected request. RequestID repeats the
// X-Request-Id header so a customer quoting a failed checkout can be traced in
// the logs.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
