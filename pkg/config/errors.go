package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when the loaded configuration fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

// IsInvalidConfigError checks if an error is an invalid configuration error
func IsInvalidConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// NewInvalidConfigError creates a new invalid configuration error
func NewInvalidConfigError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
