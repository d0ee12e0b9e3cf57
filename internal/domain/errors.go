package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound indicates an attempt id does not resolve for the caller.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrMaxAttemptsReached is matched by every *MaxAttemptsError.
	ErrMaxAttemptsReached = errors.New("max attempts reached")
	// ErrInvalid is matched by every *ValidationError.
	ErrInvalid = errors.New("invalid input")
	// ErrUnauthenticated is returned when an operation needs a user and none was given.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the caller lacks the admin role.
	ErrForbidden = errors.New("forbidden")
	// ErrStoreUnavailable marks transient storage failures; callers may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// MaxAttemptsError rejects a submission once the ceiling is used up.
type MaxAttemptsError struct {
	Ceiling int
}

func (e *MaxAttemptsError) Error() string {
	return fmt.Sprintf("max attempts reached (%d)", e.Ceiling)
}

func (e *MaxAttemptsError) Is(target error) bool {
	return target == ErrMaxAttemptsReached
}

// Rejected converts the error into its client-facing shape.
func (e *MaxAttemptsError) Rejected() RejectedResult {
	return RejectedResult{Reason: "MAX_ATTEMPTS", Ceiling: e.Ceiling}
}

// ValidationError rejects malformed quiz definitions or answer sets.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a storage failure so it matches ErrStoreUnavailable and keeps the cause.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
