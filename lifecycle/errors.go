package lifecycle

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict is returned by a Repository when a conditional update matched nothing.
	ErrConflict = errors.New("conditional update lost")
)

// Error carries a client-facing message alongside one of the sentinel kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Message returns the client-facing text for err, or "Server error" for anything unexpected.
func Message(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Msg
	}
	return "Server error"
}

// HTTPStatus maps a lifecycle error onto a response code. State conflicts are client errors.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Invalid, Forbidden and NotFound build client-facing errors for handlers
// outside the lifecycle so they share one mapping onto HTTP.
func Invalid(msg string) error { return newError(ErrValidation, msg) }

func Forbidden(msg string) error { return newError(ErrForbidden, msg) }

func NotFound(msg string) error { return newError(ErrNotFound, msg) }
