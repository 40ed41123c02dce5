package blobstore

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreSuite(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("PutOpenRoundTrip", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "snapshots/index.snap", strings.NewReader("payload")))

		rc, err := s.Open(ctx, "snapshots/index.snap")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "snapshots/index.snap", strings.NewReader("v2")))

		rc, err := s.Open(ctx, "snapshots/index.snap")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "v2", string(data))
	})

	t.Run("OpenMissing", func(t *testing.T) {
		_, err := s.Open(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "snapshots/a", strings.NewReader("a")))
		require.NoError(t, s.Put(ctx, "other/b", strings.NewReader("b")))

		names, err := s.List(ctx, "snapshots/")
		require.NoError(t, err)
		sort.Strings(names)
		assert.Equal(t, []string{"snapshots/a", "snapshots/index.snap"}, names)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "snapshots/a"))
		_, err := s.Open(ctx, "snapshots/a")
		assert.True(t, errors.Is(err, ErrNotFound))

		// Deleting a missing blob is not an error.
		assert.NoError(t, s.Delete(ctx, "snapshots/a"))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	runStoreSuite(t, s)
}
