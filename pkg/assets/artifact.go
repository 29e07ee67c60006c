package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactWriter persists a generated build artifact at an absolute path.
// It reports whether the file was actually written.
type ArtifactWriter interface {
	WriteArtifact(ctx context.Context, artifact, path string, data []byte) (bool, error)
}

// DirectWriter writes every artifact unconditionally
type DirectWriter struct{}

// WriteArtifact implements ArtifactWriter
func (DirectWriter) WriteArtifact(ctx context.Context, artifact, path string, data []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", artifact, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", artifact, err)
	}
	return true, nil
}
