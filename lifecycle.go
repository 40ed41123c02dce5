package imgsim

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/imgsim/blobstore"
	"github.com/hupe1980/imgsim/vectorstore"
)

// Stats describes the current state of the collection.
type Stats struct {
	// TotalImages is the number of indexed images.
	TotalImages int
}

// Stats returns collection statistics. It never fails on an empty
// collection.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	count, err := e.store.Count(ctx)
	if err != nil {
		return Stats{}, translateError(err)
	}
	return Stats{TotalImages: count}, nil
}

// Clear removes every record and leaves the store empty and ready for new
// ingestion.
func (e *Engine) Clear(ctx context.Context) error {
	start := time.Now()

	err := translateError(e.store.DeleteAll(ctx))

	e.metrics.RecordClear(time.Since(start), err)
	e.logger.LogClear(ctx, err)

	return err
}

// Backup serializes the collection and writes it to the blob store under
// name. Returns ErrSnapshotUnsupported if the configured vector store
// cannot snapshot its state.
func (e *Engine) Backup(ctx context.Context, bs blobstore.Store, name string) error {
	snap, ok := e.store.(vectorstore.Snapshotter)
	if !ok {
		return ErrSnapshotUnsupported
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(snap.SaveTo(ctx, pw))
	}()

	err := bs.Put(ctx, name, pr)
	if err != nil {
		// Surface the snapshot error over the transport error.
		_ = pr.CloseWithError(err)
		err = fmt.Errorf("imgsim: backup %s: %w", name, err)
	}

	e.logger.LogSnapshot(ctx, "backup", name, err)

	return err
}

// Restore replaces the collection with the snapshot stored in the blob
// store under name. Returns ErrSnapshotUnsupported if the configured vector
// store cannot load snapshots.
func (e *Engine) Restore(ctx context.Context, bs blobstore.Store, name string) error {
	snap, ok := e.store.(vectorstore.Snapshotter)
	if !ok {
		return ErrSnapshotUnsupported
	}

	rc, err := bs.Open(ctx, name)
	if err != nil {
		err = fmt.Errorf("imgsim: restore %s: %w", name, err)
		e.logger.LogSnapshot(ctx, "restore", name, err)
		return err
	}
	defer rc.Close()

	if err := snap.LoadFrom(ctx, rc); err != nil {
		err = fmt.Errorf("imgsim: restore %s: %w", name, err)
		e.logger.LogSnapshot(ctx, "restore", name, err)
		return err
	}

	e.logger.LogSnapshot(ctx, "restore", name, nil)

	return nil
}
