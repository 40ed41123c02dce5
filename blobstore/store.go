// Package blobstore abstracts the archive that index snapshots are backed
// up to and restored from.
//
// Implementations in this module: Local (directory on disk), Memory (tests),
// plus MinIO and S3 adapters in subpackages for off-host archives.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction over a named-blob archive.
type Store interface {
	// Open opens a blob for reading. The caller must close it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Put writes a blob atomically, overwriting any previous content.
	Put(ctx context.Context, name string, r io.Reader) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
