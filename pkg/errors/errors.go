// Package errors provides common domain error types for nameplate.
//
// This package defines sentinel errors for conditions that cross package
// boundaries, such as a missing learned mapping or an invalid review-state
// transition. Using typed errors enables consistent handling with errors.Is()
// checks.
//
// Usage:
//
//	import nperrors "github.com/quorumhq/nameplate/pkg/errors"
//
//	// Return a domain error
//	return nil, nperrors.ErrNotFound
//
//	// Check for domain errors
//	if nperrors.IsNotFound(err) {
//	    // handle not found case
//	}
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested record was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrInvalidState indicates the operation is not valid for the current
	// state, such as confirming an already-expired review item.
	ErrInvalidState = errors.New("invalid state")

	// ErrPersistence indicates a write to durable storage failed. A lost
	// human confirmation is a correctness bug, so these are always surfaced
	// to the caller rather than degraded.
	ErrPersistence = errors.New("persistence failure")

	// ErrProviderUnavailable indicates an inference backend could not be
	// reached or declined to answer.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsPersistence reports whether any error in err's chain is ErrPersistence.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsProviderUnavailable reports whether any error in err's chain is
// ErrProviderUnavailable.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}
