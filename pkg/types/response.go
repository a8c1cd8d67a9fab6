package types

// SuccessEnvelope wraps every 2xx body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a failure. RequestID echoes the
// X-Request-Id of the failing request so buyers can quote it to support.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RequestIDHeader carries the correlation id on requests and responses.
const RequestIDHeader = "X-Request-Id"
