package ios

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned for capability types this tool cannot apply
var ErrNotImplemented = errors.New("not implemented")

// IsNotImplementedError checks if an error is a not implemented error
func IsNotImplementedError(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}

// NewNotImplementedError creates a new not implemented error
func NewNotImplementedError(what string) error {
	return fmt.Errorf("%w: %s", ErrNotImplemented, what)
}
