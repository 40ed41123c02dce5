// Package storetest provides a reusable conformance suite for
// vectorstore.Store implementations. Every adapter must pass it.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgsim/vectorstore"
)

// Factory creates a fresh, empty store for one subtest.
// Cleanup is handled via t.Cleanup inside the factory.
type Factory func(t *testing.T) vectorstore.Store

func record(id string, vec []float32) vectorstore.Record {
	return vectorstore.Record{
		ID:     id,
		Vector: vec,
		Metadata: vectorstore.Metadata{
			FileSize:     int64(len(id)),
			ModifiedTime: 1700000000000000000,
			FileName:     id,
		},
	}
}

// Run exercises the full Store contract against the given factory.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("EmptyStore", func(t *testing.T) {
		s := newStore(t)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		results, err := s.Query(ctx, []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)

		_, err = s.Get(ctx, "/missing.jpg")
		assert.ErrorIs(t, err, vectorstore.ErrNotFound)
	})

	t.Run("UpsertAndGet", func(t *testing.T) {
		s := newStore(t)

		rec := record("/pics/a.jpg", []float32{3, 4})
		require.NoError(t, s.Upsert(ctx, rec))

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Metadata, got.Metadata)

		// Stored vector must be unit-norm.
		var norm2 float64
		for _, x := range got.Vector {
			norm2 += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, norm2, 1e-5)
	})

	t.Run("UpsertOverwrites", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Upsert(ctx, record("/pics/a.jpg", []float32{1, 0})))

		updated := record("/pics/a.jpg", []float32{0, 1})
		updated.Metadata.FileSize = 999
		require.NoError(t, s.Upsert(ctx, updated))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "upsert of existing id must not grow the collection")

		got, err := s.Get(ctx, "/pics/a.jpg")
		require.NoError(t, err)
		assert.Equal(t, int64(999), got.Metadata.FileSize)
		assert.InDelta(t, 0, got.Vector[0], 1e-6)
		assert.InDelta(t, 1, got.Vector[1], 1e-6)
	})

	t.Run("RejectsZeroVector", func(t *testing.T) {
		s := newStore(t)
		err := s.Upsert(ctx, record("/pics/zero.jpg", []float32{0, 0}))
		assert.ErrorIs(t, err, vectorstore.ErrZeroVector)
	})

	t.Run("QueryOrderingAndDistance", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Upsert(ctx, record("/pics/same.jpg", []float32{1, 0})))
		require.NoError(t, s.Upsert(ctx, record("/pics/diag.jpg", []float32{1, 1})))
		require.NoError(t, s.Upsert(ctx, record("/pics/ortho.jpg", []float32{0, 1})))

		results, err := s.Query(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, "/pics/same.jpg", results[0].ID)
		assert.Equal(t, "/pics/diag.jpg", results[1].ID)
		assert.Equal(t, "/pics/ortho.jpg", results[2].ID)

		assert.InDelta(t, 0, results[0].Distance, 1e-5)
		assert.InDelta(t, 1-0.70710678, results[1].Distance, 1e-5)
		assert.InDelta(t, 1, results[2].Distance, 1e-5)

		for i := 1; i < len(results); i++ {
			assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
		}
	})

	t.Run("QueryClampsK", func(t *testing.T) {
		s := newStore(t)

		for i := 0; i < 5; i++ {
			vec := []float32{float32(i + 1), 1}
			require.NoError(t, s.Upsert(ctx, record(fmt.Sprintf("/pics/%d.jpg", i), vec)))
		}

		results, err := s.Query(ctx, []float32{1, 0}, 1000)
		require.NoError(t, err)
		assert.Len(t, results, 5)
	})

	t.Run("QueryNonPositiveK", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, record("/pics/a.jpg", []float32{1, 0})))

		for _, k := range []int{0, -3} {
			results, err := s.Query(ctx, []float32{1, 0}, k)
			require.NoError(t, err)
			assert.Empty(t, results)
		}
	})

	t.Run("QueryStableTies", func(t *testing.T) {
		s := newStore(t)

		// Identical vectors: ordering must fall back to id and stay
		// reproducible across calls.
		require.NoError(t, s.Upsert(ctx, record("/pics/b.jpg", []float32{1, 0})))
		require.NoError(t, s.Upsert(ctx, record("/pics/a.jpg", []float32{1, 0})))

		first, err := s.Query(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)
		second, err := s.Query(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, "/pics/a.jpg", first[0].ID)
	})

	t.Run("DeleteAll", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Upsert(ctx, record("/pics/a.jpg", []float32{1, 0})))
		require.NoError(t, s.Upsert(ctx, record("/pics/b.jpg", []float32{0, 1})))

		require.NoError(t, s.DeleteAll(ctx))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		// Store must remain usable after DeleteAll.
		require.NoError(t, s.Upsert(ctx, record("/pics/c.jpg", []float32{1, 1})))
		n, err = s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		s := newStore(t)
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		assert.Error(t, s.Upsert(canceled, record("/pics/a.jpg", []float32{1, 0})))
		_, err := s.Query(canceled, []float32{1, 0}, 1)
		assert.Error(t, err)
	})
}
