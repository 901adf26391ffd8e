// Package service holds the business rules of the marketplace: the project
// and application lifecycles plus the supporting account, notification,
// report and chat operations.  Every state change that produces a
// notification writes an outbox row in the same unit of work.
package service

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned when an operation is illegal for the current
// lifecycle state, e.g. applying to a completed project.
var ErrInvalidState = errors.New("invalid state")

// ErrInvalidInput is returned for malformed or missing request values.
var ErrInvalidInput = errors.New("invalid input")

func invalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
