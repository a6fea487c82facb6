package crud

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrInFlight             = errors.New("submission already in progress")
	ErrLocked               = errors.New("record is locked")
	ErrConfirmationNotFound = errors.New("confirmation not found or expired")
	ErrRefresh              = errors.New("saved, but the list could not be refreshed")
)

// ValidationError carries the message shown next to the form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type LockedError struct {
	Reason string
}

func (e *LockedError) Error() string {
	return e.Reason
}

func (e *LockedError) Is(target error) bool {
	return target == ErrLocked
}

// RefreshFailed marks err as a failed list re-fetch after a successful save.
func RefreshFailed(err error) error {
	if err == nil {
		return nil
	}
	return &refreshError{err: err}
}

type refreshError struct {
	err error
}

func (e *refreshError) Error() string {
	return fmt.Sprintf("%v: %v", ErrRefresh, e.err)
}

func (e *refreshError) Is(target error) bool {
	return target == ErrRefresh
}

func (e *refreshError) Unwrap() error {
	return e.err
}
