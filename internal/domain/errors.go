// Package domain holds the error taxonomy shared by the booking core and the
// HTTP layer. Handlers map these onto status codes; services never return
// raw driver errors for conditions the caller can act on.
package domain

import (
	"errors"
	"fmt"
)

// ErrCapacityExceeded is matched by every CapacityError.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrAlreadyCancelled is returned when cancelling a booking that is already
// in its terminal state.
var ErrAlreadyCancelled = errors.New("booking already cancelled")

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// CapacityError reports how many seats were asked for against how many
// remained when the reservation decision was taken.
type CapacityError struct {
	Requested int
	Available int
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded: requested %d, available %d", e.Requested, e.Available)
}

func (e CapacityError) Is(target error) bool { return target == ErrCapacityExceeded }

// TransientError wraps lock timeouts, deadlocks and exhausted PNR retries.
// Callers may retry the whole request.
type TransientError struct {
	Op  string
	Err error
}

func (e TransientError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: temporarily unavailable", e.Op)
	}
	return fmt.Sprintf("%s: temporarily unavailable: %v", e.Op, e.Err)
}

func (e TransientError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsTransient(err error) bool {
	var target TransientError
	return errors.As(err, &target)
}
