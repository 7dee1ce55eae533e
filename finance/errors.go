package finance

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the calculators and allocators. Controllers
// match them with errors.Is to pick the HTTP status.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrExceedsPending = errors.New("payment exceeds pending amount")
	ErrNotFound       = errors.New("not found")
)

func invalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
