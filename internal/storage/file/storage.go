package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Storage writes finished images under a root directory on the local
// filesystem. Every write goes to a temporary file first and is renamed into
// place, so a failed write never leaves a partial output behind.
type Storage struct {
	root string
}

// NewStorage returns a Storage rooted at root. The root itself is created
// lazily on the first save, so constructing a Storage has no side effects.
func NewStorage(root string) *Storage {
	return &Storage{root: root}
}

// Save writes src to relPath under the root, creating parent directories as
// needed. Directory creation is idempotent and safe under concurrent savers.
// Returns the path of the written file.
func (s *Storage) Save(_ context.Context, relPath string, src io.Reader) (string, error) {
	dst := filepath.Join(s.root, relPath)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	return dst, nil
}
