package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is a sentinel for callers acting outside their role.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTransient marks an external dependency failure (timeout or
	// unavailability) that the caller layer may retry with a bound. It is
	// never retried silently inside the decision path.
	ErrTransient = errors.New("transient external failure")
)
