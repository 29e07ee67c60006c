package journal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/platinummonkey/cog/pkg/assets"
)

// WriteObserver is notified about every artifact write decision
type WriteObserver interface {
	ArtifactWritten(artifact string)
	ArtifactUnchanged(artifact string)
}

// Writer skips artifact writes whose content is already recorded and still
// present on disk
type Writer struct {
	journal  *Journal
	next     assets.ArtifactWriter
	observer WriteObserver
}

// NewWriter wraps next. A nil journal turns off skipping; a nil next writes
// directly to disk.
func NewWriter(j *Journal, next assets.ArtifactWriter, observer WriteObserver) *Writer {
	if next == nil {
		next = assets.DirectWriter{}
	}
	return &Writer{journal: j, next: next, observer: observer}
}

// WriteArtifact implements assets.ArtifactWriter
func (w *Writer) WriteArtifact(ctx context.Context, artifact, path string, data []byte) (bool, error) {
	hash := Hash(data)

	if w.journal != nil {
		recorded, ok, err := w.journal.ArtifactHash(ctx, path)
		if err != nil {
			return false, err
		}
		if ok && recorded == hash && fileHash(path) == hash {
			w.unchanged(artifact)
			return false, nil
		}
	}

	written, err := w.next.WriteArtifact(ctx, artifact, path, data)
	if err != nil {
		return false, err
	}
	if !written {
		w.unchanged(artifact)
		return false, nil
	}

	if w.journal != nil {
		if err := w.journal.RecordArtifact(ctx, artifact, path, hash); err != nil {
			return true, err
		}
	}
	if w.observer != nil {
		w.observer.ArtifactWritten(artifact)
	}
	return true, nil
}

func (w *Writer) unchanged(artifact string) {
	if w.observer != nil {
		w.observer.ArtifactUnchanged(artifact)
	}
}

// Hash returns the hex sha256 of data
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fileHash(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return Hash(data)
}
