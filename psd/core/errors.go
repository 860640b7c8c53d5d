package core

import "errors"

// Error kinds shared across the module. Packages wrap these with
// fmt.Errorf("pkg: detail: %w", kind) so callers can test the kind with
// errors.Is while still getting a specific message.
var (
	// ErrConfiguration marks caller-supplied parameters that are
	// structurally insufficient or contradictory. Operations fail fast on
	// it, before any computation.
	ErrConfiguration = errors.New("psd: invalid configuration")

	// ErrValidation marks data that violates a structural invariant:
	// bin edges out of order, a missing named column, a malformed export.
	ErrValidation = errors.New("psd: validation failed")
)
