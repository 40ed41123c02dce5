package imgsim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgsim/blobstore"
	"github.com/hupe1980/imgsim/vectorstore"
)

func TestStats(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	// Never fails on an empty collection.
	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalImages)

	_, err = engine.BuildDatabase(ctx, catDogKittenDir(t))
	require.NoError(t, err)

	stats, err = engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalImages)
}

func TestClearThenRebuild(t *testing.T) {
	ctx := context.Background()
	engine, emb, _ := newTestEngine(t)
	dir := catDogKittenDir(t)

	_, err := engine.BuildDatabase(ctx, dir)
	require.NoError(t, err)

	require.NoError(t, engine.Clear(ctx))

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalImages)

	// Rebuilding a cleared collection re-embeds everything and reproduces
	// the original count.
	report, err := engine.BuildDatabase(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, BuildReport{Total: 3, Added: 3}, report)
	assert.Equal(t, int64(6), emb.imageCalls.Load())
}

func TestClearEmptyCollection(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	assert.NoError(t, engine.Clear(context.Background()))
}

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)
	dir := catDogKittenDir(t)

	_, err := engine.BuildDatabase(ctx, dir)
	require.NoError(t, err)

	archive := blobstore.NewMemoryStore()
	require.NoError(t, engine.Backup(ctx, archive, "snapshots/photos.snap"))

	require.NoError(t, engine.Clear(ctx))

	require.NoError(t, engine.Restore(ctx, archive, "snapshots/photos.snap"))

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalImages)

	// Restored collection answers queries.
	matches, err := engine.SearchByText(ctx, "cat", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "cat.jpg", matches[0].Metadata.FileName)
}

func TestRestoreMissingSnapshot(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	err := engine.Restore(ctx, blobstore.NewMemoryStore(), "snapshots/nope.snap")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

// opaqueStore hides the concrete store behind the plain interface, so the
// Snapshotter type assertion fails.
type opaqueStore struct {
	vectorstore.Store
}

func TestSnapshotUnsupported(t *testing.T) {
	ctx := context.Background()

	engine, _, store := newTestEngine(t)
	wrapped, err := New(engine.embedder, opaqueStore{Store: store})
	require.NoError(t, err)

	archive := blobstore.NewMemoryStore()
	assert.ErrorIs(t, wrapped.Backup(ctx, archive, "x"), ErrSnapshotUnsupported)
	assert.ErrorIs(t, wrapped.Restore(ctx, archive, "x"), ErrSnapshotUnsupported)
}
