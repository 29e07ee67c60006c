package assets

import (
	"errors"
	"fmt"
)

var (
	// ErrAssetNotFound is returned when an asset file does not exist
	ErrAssetNotFound = errors.New("asset not found")

	// ErrInvalidAsset is returned when an asset file cannot be parsed
	ErrInvalidAsset = errors.New("invalid asset")

	// ErrKindMismatch is returned when an asset is loaded as the wrong kind
	ErrKindMismatch = errors.New("asset kind mismatch")
)

// IsAssetNotFoundError checks if the error is or wraps ErrAssetNotFound
func IsAssetNotFoundError(err error) bool {
	return errors.Is(err, ErrAssetNotFound)
}

// IsInvalidAssetError checks if the error is or wraps ErrInvalidAsset
func IsInvalidAssetError(err error) bool {
	return errors.Is(err, ErrInvalidAsset)
}

// IsKindMismatchError checks if the error is or wraps ErrKindMismatch
func IsKindMismatchError(err error) bool {
	return errors.Is(err, ErrKindMismatch)
}

// NewAssetNotFoundError creates a not found error for the given asset path
func NewAssetNotFoundError(path string) error {
	return fmt.Errorf("%w: %s", ErrAssetNotFound, path)
}

// NewInvalidAssetError creates an invalid asset error with the parse cause
func NewInvalidAssetError(path string, cause error) error {
	return fmt.Errorf("%w %s: %v", ErrInvalidAsset, path, cause)
}

// NewKindMismatchError creates a kind mismatch error
func NewKindMismatchError(path, want, got string) error {
	return fmt.Errorf("%w: %s is %q, want %q", ErrKindMismatch, path, got, want)
}
