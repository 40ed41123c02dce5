// Package vectorstore defines the persistent collection contract the
// similarity engine is built on, plus the record model shared by all
// implementations.
//
// A Store maps a stable string identifier (the canonical absolute path of
// the source image) to a unit-norm embedding vector and a small amount of
// file metadata. Two implementations ship with this module:
//
//   - flat: in-memory brute-force index with snapshot persistence
//   - sqlite: disk-resident store reopenable by path
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNotFound is returned by Get when no record exists for the id.
	ErrNotFound = errors.New("vectorstore: record not found")

	// ErrUnavailable wraps store-level failures (file cannot be opened,
	// write failed). Operations that hit it abort; previously persisted
	// records stay intact.
	ErrUnavailable = errors.New("vectorstore: store unavailable")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("vectorstore: store closed")

	// ErrZeroVector is returned when upserting a vector with zero L2 norm,
	// which cannot participate in cosine search.
	ErrZeroVector = errors.New("vectorstore: zero vector")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vectorstore: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Metadata carries the file facts used for freshness detection and display.
// It is never used in similarity computation.
type Metadata struct {
	// FileSize is the size of the source file in bytes.
	FileSize int64 `json:"file_size"`

	// ModifiedTime is the file modification time in Unix nanoseconds.
	// Freshness detection compares this value for exact equality.
	ModifiedTime int64 `json:"modified_time"`

	// FileName is the base name of the source file.
	FileName string `json:"file_name"`
}

// Record is one entry per ingested image.
type Record struct {
	// ID is the canonical absolute path of the source image. It is both
	// identity and lookup key; a renamed file is a new record.
	ID string `json:"id"`

	// Vector is the unit-norm embedding. Implementations normalize on
	// upsert so queries can rely on distance = 1 - dot.
	Vector []float32 `json:"vector"`

	Metadata Metadata `json:"metadata"`
}

// QueryResult is one nearest neighbor: id plus cosine distance.
type QueryResult struct {
	ID       string
	Distance float32
	Metadata Metadata
}

// Store is a persistent collection of records supporting upsert, point
// lookup and k-nearest-neighbor queries under cosine distance.
//
// Implementations must be safe for concurrent use. Queries running
// concurrently with upserts may observe a partially updated collection;
// that is acceptable per the engine's consistency model.
type Store interface {
	// Upsert inserts or overwrites the record for rec.ID. Last write wins.
	// The vector is L2-normalized before storage; zero vectors are rejected.
	Upsert(ctx context.Context, rec Record) error

	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// Query returns up to min(k, Count) neighbors of vec ordered by
	// ascending cosine distance. Ties break by id so results are stable.
	// k <= 0 and an empty collection both yield an empty result, not an
	// error.
	Query(ctx context.Context, vec []float32, k int) ([]QueryResult, error)

	// Count returns the number of distinct ids in the collection.
	Count(ctx context.Context) (int, error)

	// DeleteAll removes every record and leaves the store in the same
	// ready state as a freshly created empty one.
	DeleteAll(ctx context.Context) error

	// Close releases resources. The store must not be used afterwards.
	Close() error
}

// Snapshotter is an optional interface for stores whose full state can be
// serialized to a single stream, used by backup/restore.
type Snapshotter interface {
	SaveTo(ctx context.Context, w io.Writer) error
	LoadFrom(ctx context.Context, r io.Reader) error
}
