package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSlotUnavailable = errors.New("slot unavailable")
	ErrBookingNotFound = errors.New("booking not found")
	ErrValidation      = errors.New("validation failed")
	ErrInvalidInput    = errors.New("invalid input")
	ErrTemporary       = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// IsRecoverable reports whether a gateway failure is a conversational
// condition rather than a fault: the dialogue converts it into a reply
// instead of surfacing an error.
func IsRecoverable(err error) bool {
	return IsKind(err, ErrSlotUnavailable) ||
		IsKind(err, ErrBookingNotFound) ||
		IsKind(err, ErrValidation)
}
