package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalGrainSource_FetchText(t *testing.T) {
	baseDir := t.TempDir()
	src, err := NewLocalGrainSource(baseDir)
	if err != nil {
		t.Fatalf("NewLocalGrainSource failed: %v", err)
	}

	content := "create table foo (...)"
	if err := os.WriteFile(filepath.Join(baseDir, "shop.sql"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	ctx := context.Background()

	exists, err := src.Exists(ctx, "shop.sql")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected shop.sql to exist")
	}

	text, err := src.FetchText(ctx, "shop.sql")
	if err != nil {
		t.Fatalf("FetchText failed: %v", err)
	}
	if text != content {
		t.Errorf("content mismatch: got %q, want %q", text, content)
	}
}

func TestLocalGrainSource_FetchTextNotFound(t *testing.T) {
	baseDir := t.TempDir()
	src, err := NewLocalGrainSource(baseDir)
	if err != nil {
		t.Fatalf("NewLocalGrainSource failed: %v", err)
	}

	ctx := context.Background()

	exists, err := src.Exists(ctx, "missing.sql")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected missing.sql to not exist")
	}

	if _, err := src.FetchText(ctx, "missing.sql"); err != ErrObjectNotFound {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}
