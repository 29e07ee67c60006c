package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when no descriptor has the requested code name
	ErrProductNotFound = errors.New("product not found")

	// ErrUnsupportedTarget is returned for build targets other than android, ios and tvos
	ErrUnsupportedTarget = errors.New("unsupported build target")
)

// IsProductNotFoundError checks if an error is a product not found error
func IsProductNotFoundError(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}

// NewProductNotFoundError creates a new product not found error
func NewProductNotFoundError(codeName string) error {
	return fmt.Errorf("%w: %s", ErrProductNotFound, codeName)
}

// IsUnsupportedTargetError checks if an error is an unsupported target error
func IsUnsupportedTargetError(err error) bool {
	return errors.Is(err, ErrUnsupportedTarget)
}

// NewUnsupportedTargetError creates a new unsupported target error
func NewUnsupportedTargetError(target string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedTarget, target)
}
