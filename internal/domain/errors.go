package domain

import "errors"

// Error kinds. Services wrap these with context via fmt.Errorf("%w: ...");
// the transport layer maps each kind to an HTTP status.
var (
	// ErrConflict: overlap or lock contention, retryable after backoff.
	ErrConflict = errors.New("conflict")
	// ErrValidation: malformed input, not retryable without change.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound: unknown booking, pitch or transaction.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized: actor lacks rights over the resource.
	ErrUnauthorized = errors.New("not authorized")
	// ErrProvider: payment provider call failed or returned non-success.
	ErrProvider = errors.New("payment provider error")
	// ErrState: operation invalid for the current booking status.
	ErrState = errors.New("invalid state")
)
