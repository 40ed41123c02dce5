package imgsim

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/imgsim/vectorstore"
)

var (
	// ErrNoEmbedder is returned by New when the embedder is nil.
	ErrNoEmbedder = errors.New("imgsim: embedder is required")

	// ErrNoStore is returned by New when the vector store is nil.
	ErrNoStore = errors.New("imgsim: vector store is required")

	// ErrSnapshotUnsupported is returned by Backup and Restore when the
	// configured vector store cannot serialize its state.
	ErrSnapshotUnsupported = errors.New("imgsim: vector store does not support snapshots")
)

// translateError classifies store failures so callers can match on the
// vectorstore sentinels without knowing which adapter is configured.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, vectorstore.ErrUnavailable) ||
		errors.Is(err, vectorstore.ErrNotFound) ||
		errors.Is(err, vectorstore.ErrClosed) ||
		errors.Is(err, vectorstore.ErrZeroVector) {
		return err
	}

	var dm *vectorstore.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return err
	}

	// Cancellation is the caller's doing, not a store failure.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
}
