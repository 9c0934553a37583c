package scoreio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
)

// CachingLoader wraps another Loader with a local, snappy-compressed
// cache keyed by grain name. A cache hit is trusted as-is: staleness
// is the caller's problem, since it is the stored checksum in
// celesta.grains — not this cache — that the updater actually
// compares against to decide whether a grain changed.
type CachingLoader struct {
	underlying Loader
	dir        string
}

// NewCachingLoader builds a CachingLoader backed by underlying, using
// dir to hold compressed cache entries. dir is created if missing.
func NewCachingLoader(underlying Loader, dir string) (*CachingLoader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("scoreio: create cache dir: %w", err)
	}
	return &CachingLoader{underlying: underlying, dir: dir}, nil
}

func (c *CachingLoader) cachePath(grainName string) string {
	return filepath.Join(c.dir, grainName+".snappy")
}

// Load returns grainName's source, from cache when present and from
// the underlying loader otherwise, populating the cache on a miss.
func (c *CachingLoader) Load(ctx context.Context, grainName string) (Source, error) {
	if text, ok, err := c.readCache(grainName); err != nil {
		return Source{}, err
	} else if ok {
		return NewSource(grainName, text), nil
	}

	src, err := c.underlying.Load(ctx, grainName)
	if err != nil {
		return Source{}, err
	}
	if err := c.writeCache(grainName, src.Text); err != nil {
		return Source{}, err
	}
	return src, nil
}

// Invalidate removes grainName's cache entry, if any, so the next
// Load re-fetches from the underlying loader.
func (c *CachingLoader) Invalidate(grainName string) error {
	err := os.Remove(c.cachePath(grainName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("scoreio: invalidate %s: %w", grainName, err)
	}
	return nil
}

func (c *CachingLoader) readCache(grainName string) (string, bool, error) {
	compressed, err := os.ReadFile(c.cachePath(grainName))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("scoreio: read cache for %s: %w", grainName, err)
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return "", false, fmt.Errorf("scoreio: decode cache for %s: %w", grainName, err)
	}
	return string(data), true, nil
}

func (c *CachingLoader) writeCache(grainName, text string) error {
	compressed := snappy.Encode(nil, []byte(text))
	if err := os.WriteFile(c.cachePath(grainName), compressed, 0o644); err != nil {
		return fmt.Errorf("scoreio: write cache for %s: %w", grainName, err)
	}
	return nil
}
