package scoreio

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/celesta-db/celesta/internal/storage"
)

// RootManifest describes where each grain's source lives: a set of
// named roots (each backed by a local directory or an S3 bucket
// prefix) and a grain-name-to-root assignment. This is the on-disk
// format read by NewManifestLoader, typically named score.yaml.
type RootManifest struct {
	Roots  []RootSpec        `yaml:"roots"`
	Grains map[string]string `yaml:"grains"` // grainName -> root name
}

// RootSpec names one grain source root: exactly one of Local or S3
// must be set.
type RootSpec struct {
	Name  string       `yaml:"name"`
	Local *LocalSpec   `yaml:"local,omitempty"`
	S3    *S3RootSpec  `yaml:"s3,omitempty"`
}

// LocalSpec backs a root with a directory on the local filesystem.
type LocalSpec struct {
	Dir string `yaml:"dir"`
}

// S3RootSpec backs a root with an S3 bucket and key prefix.
type S3RootSpec struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region,omitempty"`
}

// ParseRootManifest parses a score.yaml document.
func ParseRootManifest(data []byte) (*RootManifest, error) {
	var m RootManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("scoreio: parse root manifest: %w", err)
	}
	return &m, nil
}

// ManifestLoader resolves grain names to source text using the roots
// declared in a RootManifest, each fronted by a storage.GrainSource
// (local filesystem or S3).
type ManifestLoader struct {
	grainRoot map[string]storage.GrainSource
}

// NewManifestLoader builds a ManifestLoader from m, wiring one
// storage.GrainSource per declared root.
func NewManifestLoader(ctx context.Context, m *RootManifest) (*ManifestLoader, error) {
	backends := make(map[string]storage.GrainSource, len(m.Roots))
	for _, r := range m.Roots {
		switch {
		case r.Local != nil:
			ls, err := storage.NewLocalGrainSource(r.Local.Dir)
			if err != nil {
				return nil, fmt.Errorf("scoreio: root %s: %w", r.Name, err)
			}
			backends[r.Name] = ls
		case r.S3 != nil:
			cfg := storage.DefaultS3Config()
			if r.S3.Region != "" {
				cfg.Region = r.S3.Region
			}
			s3s, err := storage.NewS3GrainSource(ctx, r.S3.Bucket, r.S3.Prefix, cfg)
			if err != nil {
				return nil, fmt.Errorf("scoreio: root %s: %w", r.Name, err)
			}
			backends[r.Name] = s3s
		default:
			return nil, fmt.Errorf("scoreio: root %s: neither local nor s3 configured", r.Name)
		}
	}

	grainRoot := make(map[string]storage.GrainSource, len(m.Grains))
	for grain, rootName := range m.Grains {
		backend, ok := backends[rootName]
		if !ok {
			return nil, fmt.Errorf("scoreio: grain %s: unknown root %s", grain, rootName)
		}
		grainRoot[grain] = backend
	}

	return &ManifestLoader{grainRoot: grainRoot}, nil
}

// Load fetches grainName's source, named "<grainName>.sql" within its
// root, and returns its text.
func (l *ManifestLoader) Load(ctx context.Context, grainName string) (Source, error) {
	backend, ok := l.grainRoot[grainName]
	if !ok {
		return Source{}, &ErrGrainNotFound{GrainName: grainName}
	}

	objectPath := grainName + ".sql"
	exists, err := backend.Exists(ctx, objectPath)
	if err != nil {
		return Source{}, fmt.Errorf("scoreio: grain %s: %w", grainName, err)
	}
	if !exists {
		return Source{}, &ErrGrainNotFound{GrainName: grainName}
	}

	text, err := backend.FetchText(ctx, objectPath)
	if err != nil {
		return Source{}, fmt.Errorf("scoreio: grain %s: fetch: %w", grainName, err)
	}
	return NewSource(grainName, text), nil
}

// GrainNames returns every grain name the manifest declares a root for.
func (l *ManifestLoader) GrainNames() []string {
	names := make([]string, 0, len(l.grainRoot))
	for name := range l.grainRoot {
		names = append(names, name)
	}
	return names
}
