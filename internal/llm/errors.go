package llm

import "errors"

var (
	// ErrNotConfigured means the selected provider has no API key.
	ErrNotConfigured = errors.New("llm: provider not configured")
	// ErrUnavailable wraps transport failures and non-2xx responses.
	ErrUnavailable = errors.New("llm: provider unavailable")
	// ErrInvalidOutput means the model answered with something unusable.
	ErrInvalidOutput = errors.New("llm: invalid output")
)
