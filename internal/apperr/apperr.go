// Package apperr defines the error kinds shared by the service and
// transport layers. Services wrap these sentinels with context via
// fmt.Errorf("...: %w", ...); the HTTP layer matches them with errors.Is
// to pick a status code.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")

	// ErrPreconditionFailed indicates a business rule was violated: not in
	// group, group closed, not owner, already settling, and so on.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrConflict indicates a duplicate: invite, friendship, email,
	// deactivation.
	ErrConflict = errors.New("conflict")

	// ErrInvalidArgument indicates malformed input such as a non-positive
	// amount or an empty group.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthenticated indicates a missing or invalid session.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ErrInsufficientFunds is a precondition failure on a wallet balance.
var ErrInsufficientFunds = fmt.Errorf("%w: insufficient funds", ErrPreconditionFailed)

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Precondition wraps ErrPreconditionFailed with a formatted message naming
// the violated rule.
func Precondition(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrPreconditionFailed)
}

// Conflict wraps ErrConflict with a formatted message.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// InvalidArgument wraps ErrInvalidArgument with a formatted message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}
