package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalGrainSource resolves grain source objects under a directory on
// the local filesystem, one file per object path.
type LocalGrainSource struct {
	baseDir string
}

// NewLocalGrainSource roots a LocalGrainSource at baseDir, creating it
// if missing.
func NewLocalGrainSource(baseDir string) (*LocalGrainSource, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create local root: %w", err)
	}
	return &LocalGrainSource{baseDir: baseDir}, nil
}

// FetchText reads the file at objectPath under the root directory.
func (l *LocalGrainSource) FetchText(ctx context.Context, objectPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(l.fullPath(objectPath))
	if os.IsNotExist(err) {
		return "", ErrObjectNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: fetch %s: %w", objectPath, err)
	}
	return string(data), nil
}

// Exists reports whether objectPath names a regular file under the
// root directory.
func (l *LocalGrainSource) Exists(ctx context.Context, objectPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(l.fullPath(objectPath))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: stat %s: %w", objectPath, err)
	}
	return true, nil
}

func (l *LocalGrainSource) fullPath(objectPath string) string {
	return filepath.Join(l.baseDir, objectPath)
}
