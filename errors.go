package prdgen

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrBackendUnavailable indicates the model backend could not be
	// reached or answered with a non-success status. Gateways retry this
	// a bounded number of times before surfacing it.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrGenerationTimeout indicates no output arrived within the bounded
	// wait. Never retried; fragments already received are preserved.
	ErrGenerationTimeout = errors.New("generation timeout")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrPhase indicates an operation invalid for the session's current
	// phase. A driver programming error, not a session failure.
	ErrPhase = errors.New("invalid phase")
)
