package scoreio

import (
	"context"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"
)

func TestNewSource_ComputesLengthAndChecksum(t *testing.T) {
	text := "CREATE GRAIN foo VERSION '1.0';"
	src := NewSource("foo", text)

	if src.Length != len(text) {
		t.Errorf("Length = %d, want %d", src.Length, len(text))
	}
	want := crc32.ChecksumIEEE([]byte(text))
	if src.Checksum != want {
		t.Errorf("Checksum = %08X, want %08X", src.Checksum, want)
	}
}

func TestManifestLoader_LocalRoot(t *testing.T) {
	rootDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(rootDir, "foo.sql"), []byte("CREATE GRAIN foo VERSION '1.0';"), 0o644); err != nil {
		t.Fatalf("write grain source: %v", err)
	}

	m := &RootManifest{
		Roots:  []RootSpec{{Name: "local", Local: &LocalSpec{Dir: rootDir}}},
		Grains: map[string]string{"foo": "local"},
	}

	loader, err := NewManifestLoader(context.Background(), m)
	if err != nil {
		t.Fatalf("NewManifestLoader: %v", err)
	}

	src, err := loader.Load(context.Background(), "foo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.Text != "CREATE GRAIN foo VERSION '1.0';" {
		t.Errorf("unexpected source text: %q", src.Text)
	}

	if _, err := loader.Load(context.Background(), "missing"); err == nil {
		t.Error("expected error for undeclared grain")
	}
}

func TestManifestLoader_ParseRootManifest(t *testing.T) {
	yamlDoc := []byte(`
roots:
  - name: local
    local:
      dir: /tmp/grains
grains:
  foo: local
`)
	m, err := ParseRootManifest(yamlDoc)
	if err != nil {
		t.Fatalf("ParseRootManifest: %v", err)
	}
	if len(m.Roots) != 1 || m.Roots[0].Name != "local" {
		t.Fatalf("unexpected roots: %+v", m.Roots)
	}
	if m.Grains["foo"] != "local" {
		t.Fatalf("unexpected grains: %+v", m.Grains)
	}
}

func TestCachingLoader_PopulatesAndReusesCache(t *testing.T) {
	rootDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(rootDir, "foo.sql"), []byte("CREATE GRAIN foo VERSION '1.0';"), 0o644); err != nil {
		t.Fatalf("write grain source: %v", err)
	}
	m := &RootManifest{
		Roots:  []RootSpec{{Name: "local", Local: &LocalSpec{Dir: rootDir}}},
		Grains: map[string]string{"foo": "local"},
	}
	underlying, err := NewManifestLoader(context.Background(), m)
	if err != nil {
		t.Fatalf("NewManifestLoader: %v", err)
	}

	cacheDir := t.TempDir()
	cached, err := NewCachingLoader(underlying, cacheDir)
	if err != nil {
		t.Fatalf("NewCachingLoader: %v", err)
	}

	first, err := cached.Load(context.Background(), "foo")
	if err != nil {
		t.Fatalf("Load (miss): %v", err)
	}

	// Remove the underlying source; a cache hit must still succeed.
	if err := os.Remove(filepath.Join(rootDir, "foo.sql")); err != nil {
		t.Fatalf("remove source: %v", err)
	}

	second, err := cached.Load(context.Background(), "foo")
	if err != nil {
		t.Fatalf("Load (hit): %v", err)
	}
	if second.Text != first.Text || second.Checksum != first.Checksum {
		t.Errorf("cached load diverged from original: %+v vs %+v", second, first)
	}

	if err := cached.Invalidate("foo"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := cached.Load(context.Background(), "foo"); err == nil {
		t.Error("expected error after invalidation with source removed")
	}
}
