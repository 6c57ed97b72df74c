package types

// SuccessEnvelope wraps every successful API payload under a data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a request failure. Details is only
// populated for codes that allow structured context.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError for transport.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
