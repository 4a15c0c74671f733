// Package apperr defines the error kinds shared by stores, policy checks,
// the group service and the HTTP layer.
//
// Callers wrap a kind with context using fmt.Errorf("%w: ...", apperr.ErrX)
// and test for it with errors.Is. KindOf collapses any error to one kind so
// transports can map it to a status code in one place.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a group or message id did not resolve.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the acting user failed a permission rule.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidState means the operation no longer makes sense for the
	// entity's lifecycle state.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation means the input was rejected before any load or write.
	ErrValidation = errors.New("validation failed")
	// ErrConflict means an optimistic-concurrency write lost its race. The
	// service retries it; it reaches callers only after retries run out.
	ErrConflict = errors.New("conflict")
)

// Kind is a coarse error category.
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindInvalidState Kind = "INVALID_STATE"
	KindValidation   Kind = "VALIDATION"
	KindConflict     Kind = "CONFLICT"
	KindInternal     Kind = "INTERNAL"
)

// KindOf returns the kind of err. Errors wrapping none of the sentinels are
// KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	}
	return KindInternal
}

// Validation returns an ErrValidation wrapping the formatted reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Unauthorized returns an ErrUnauthorized wrapping the formatted reason.
func Unauthorized(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound naming the missing entity.
func NotFound(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}

// InvalidState returns an ErrInvalidState wrapping the formatted reason.
func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
