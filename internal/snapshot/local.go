package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local writes snapshots to a directory tree under baseDir.
type Local struct {
	baseDir string
}

// NewLocal creates the base directory if needed and verifies it is writable.
func NewLocal(baseDir string) (*Local, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("snapshot base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", baseDir, err)
	}
	probe := filepath.Join(baseDir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("snapshot dir not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}
	return &Local{baseDir: baseDir}, nil
}

// Save writes html to baseDir/key, creating parent directories.
func (s *Local) Save(ctx context.Context, key string, html []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := filepath.Join(s.baseDir, key)
	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return fmt.Errorf("snapshot key escapes base dir: %s", key)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("create snapshot parent dir: %w", err)
	}
	if err := os.WriteFile(fullPath, html, 0o600); err != nil {
		return fmt.Errorf("write snapshot %s: %w", fullPath, err)
	}
	return nil
}

// Close is a no-op for the local store.
func (s *Local) Close() error { return nil }
