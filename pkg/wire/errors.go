package wire

import "errors"

// Failure taxonomy shared across components. Handlers map these to
// match.error events; they are never fatal to the process.
var (
	ErrNotFound          = errors.New("match not found")
	ErrUnauthorized      = errors.New("identity mismatch")
	ErrValidationMissing = errors.New("required field missing")
	ErrUnavailable       = errors.New("service unavailable")
)
