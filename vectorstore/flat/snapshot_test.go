package flat

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgsim/codec"
	"github.com/hupe1980/imgsim/vectorstore"
)

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	recs := []vectorstore.Record{
		{ID: "/pics/a.jpg", Vector: []float32{1, 0}, Metadata: vectorstore.Metadata{FileSize: 10, ModifiedTime: 111, FileName: "a.jpg"}},
		{ID: "/pics/b.jpg", Vector: []float32{0, 1}, Metadata: vectorstore.Metadata{FileSize: 20, ModifiedTime: 222, FileName: "b.jpg"}},
		{ID: "/pics/c.jpg", Vector: []float32{1, 1}, Metadata: vectorstore.Metadata{FileSize: 30, ModifiedTime: 333, FileName: "c.jpg"}},
	}
	for _, rec := range recs {
		require.NoError(t, s.Upsert(ctx, rec))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()

	compressions := map[string]CompressionType{
		"None": CompressionNone,
		"LZ4":  CompressionLZ4,
		"ZSTD": CompressionZSTD,
	}

	for name, compression := range compressions {
		t.Run(name, func(t *testing.T) {
			src := New(func(o *Options) { o.Compression = compression })
			seed(t, src)

			var buf bytes.Buffer
			require.NoError(t, src.SaveTo(ctx, &buf))

			dst := New()
			require.NoError(t, dst.LoadFrom(ctx, &buf))

			n, err := dst.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			got, err := dst.Get(ctx, "/pics/b.jpg")
			require.NoError(t, err)
			assert.Equal(t, int64(222), got.Metadata.ModifiedTime)
			assert.Equal(t, "b.jpg", got.Metadata.FileName)

			// Query behavior must survive the round trip.
			results, err := dst.Query(ctx, []float32{1, 0}, 1)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "/pics/a.jpg", results[0].ID)
		})
	}
}

func TestSnapshotCodecHeader(t *testing.T) {
	ctx := context.Background()

	// Written with stdlib JSON, read back by header name regardless of the
	// destination store's default codec.
	src := New(func(o *Options) { o.Codec = codec.JSON{} })
	seed(t, src)

	var buf bytes.Buffer
	require.NoError(t, src.SaveTo(ctx, &buf))

	dst := New()
	require.NoError(t, dst.LoadFrom(ctx, &buf))

	n, err := dst.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSnapshotMalformed(t *testing.T) {
	ctx := context.Background()

	t.Run("Truncated", func(t *testing.T) {
		s := New()
		err := s.LoadFrom(ctx, bytes.NewReader([]byte("IMG")))
		assert.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("WrongMagic", func(t *testing.T) {
		s := New()
		err := s.LoadFrom(ctx, bytes.NewReader([]byte("NOTASNAP\x00\x00\x00")))
		assert.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("UnknownCodec", func(t *testing.T) {
		raw := append([]byte{}, snapshotMagic[:]...)
		raw = append(raw, 5, 0) // name length 5
		raw = append(raw, []byte("bogus")...)
		raw = append(raw, byte(CompressionNone))

		s := New()
		err := s.LoadFrom(ctx, bytes.NewReader(raw))
		assert.ErrorIs(t, err, ErrUnknownCodec)
	})
}

func TestOpenClosePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.snap")

	s, err := Open(path)
	require.NoError(t, err)
	seed(t, s)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "does-not-exist.snap")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
