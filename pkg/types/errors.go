package types

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned by validation helpers in this package. Storage
// and engine packages re-export it (or wrap it) rather than define a second,
// unrelated sentinel for the same condition.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnknownMemoryKind wraps ErrInvalidInput with the offending value.
func ErrUnknownMemoryKind(s string) error {
	return fmt.Errorf("%w: unknown memory kind %q", ErrInvalidInput, s)
}
