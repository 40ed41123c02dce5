package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgsim/distance"
)

func TestStubFixtureVectors(t *testing.T) {
	ctx := context.Background()
	stub := NewStub(4)
	stub.SetImageVector("cat.jpg bytes", []float32{2, 0, 0, 0})
	stub.SetTextVector("a cat", []float32{0, 3, 0, 0})

	img, err := stub.EmbedImage(ctx, []byte("cat.jpg bytes"))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0}, img)

	txt, err := stub.EmbedText(ctx, "a cat")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0, 0}, txt)
}

func TestStubDeterministicFallback(t *testing.T) {
	ctx := context.Background()
	stub := NewStub(8)

	a, err := stub.EmbedImage(ctx, []byte("unregistered"))
	require.NoError(t, err)
	b, err := stub.EmbedImage(ctx, []byte("unregistered"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := stub.EmbedImage(ctx, []byte("different"))
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	// Fallback vectors are unit-norm.
	assert.InDelta(t, 1.0, float64(distance.Dot(a, a)), 1e-5)

	// Text and image inputs with the same content do not collide.
	txt, err := stub.EmbedText(ctx, "unregistered")
	require.NoError(t, err)
	assert.NotEqual(t, a, txt)
}

func TestStubFailImage(t *testing.T) {
	ctx := context.Background()
	stub := NewStub(4)
	stub.FailImage("corrupt bytes")

	_, err := stub.EmbedImage(ctx, []byte("corrupt bytes"))
	assert.ErrorIs(t, err, ErrEncode)

	// Other inputs are unaffected.
	_, err = stub.EmbedImage(ctx, []byte("fine bytes"))
	assert.NoError(t, err)
}

func TestStubFixtureDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	stub := NewStub(4)
	stub.SetImageVector("img", []float32{1, 0})

	_, err := stub.EmbedImage(ctx, []byte("img"))
	assert.ErrorIs(t, err, ErrEncode)
}

func TestStubCanceledContext(t *testing.T) {
	stub := NewStub(4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stub.EmbedImage(ctx, []byte("img"))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = stub.EmbedText(ctx, "query")
	assert.ErrorIs(t, err, context.Canceled)
}
