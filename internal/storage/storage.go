// Package storage resolves grain source objects — CelestaSQL text
// stored under an object path such as "<grainName>.sql" — from the
// backends a scoreio.RootManifest can declare: a local directory tree
// or an S3 bucket/prefix. It only ever reads; celesta never writes
// grain source back to a root.
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when a GrainSource has no object at
// the requested path.
var ErrObjectNotFound = errors.New("storage: object not found")

// GrainSource fetches grain source text from a single root. Local and
// S3 backends implement it; scoreio.ManifestLoader picks one per
// declared root and never talks to the concrete type directly.
type GrainSource interface {
	// FetchText returns the full contents of the object at
	// objectPath. It returns ErrObjectNotFound if no such object
	// exists.
	FetchText(ctx context.Context, objectPath string) (string, error)

	// Exists reports whether an object is present at objectPath.
	Exists(ctx context.Context, objectPath string) (bool, error)
}
