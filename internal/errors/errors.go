package errors

import (
	"errors"
	"fmt"
)

var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrExpiredOrInvalid = errors.New("code is expired or invalid")
	ErrExternalService  = errors.New("external service error")
	ErrRateLimited      = errors.New("too many requests")

	// ErrAlreadyRegistered means the desired end state already holds.
	ErrAlreadyRegistered = fmt.Errorf("%w: person already registered for schedule", ErrConflict)
	ErrNoVacancy         = fmt.Errorf("%w: schedule has no vacancy", ErrConflict)
)

// Validation returns an ErrValidation carrying a human readable reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound naming the missing entity.
func NotFound(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}

// Conflict returns an ErrConflict with a reason.
func Conflict(reason string) error {
	return fmt.Errorf("%w: %s", ErrConflict, reason)
}

// External wraps a provider failure so it is never mistaken for a business
// outcome such as a rejected payment.
func External(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrExternalService, op, err)
}

// Is, As and New re-export the standard helpers so callers need a single
// errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }
