package pbxproj

import (
	"errors"
	"fmt"
)

var (
	// ErrTargetNotFound is returned when a native target cannot be resolved
	ErrTargetNotFound = errors.New("target not found")

	// ErrInvalidProject is returned when the project file has an unexpected shape
	ErrInvalidProject = errors.New("invalid project")
)

// IsTargetNotFoundError checks if an error is a target not found error
func IsTargetNotFoundError(err error) bool {
	return errors.Is(err, ErrTargetNotFound)
}

// IsInvalidProjectError checks if an error is an invalid project error
func IsInvalidProjectError(err error) bool {
	return errors.Is(err, ErrInvalidProject)
}

// NewTargetNotFoundError creates a new target not found error
func NewTargetNotFoundError(name string) error {
	return fmt.Errorf("%w: %s", ErrTargetNotFound, name)
}

// NewInvalidProjectError creates a new invalid project error
func NewInvalidProjectError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidProject, reason)
}
