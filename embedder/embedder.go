// Package embedder defines the embedding capability the similarity engine
// consumes: mapping images and free text into one shared, unit-norm vector
// space, CLIP-style.
//
// The engine never loads a neural model itself. Production deployments use
// the HTTP adapter against a model-serving sidecar; tests use the
// deterministic Stub.
package embedder

import (
	"context"
	"errors"
)

// ErrEncode is the class of failures for inputs the model cannot embed
// (corrupt image bytes, unsupported format). Callers recover from it per
// input; it never aborts a batch.
var ErrEncode = errors.New("embedder: encode failed")

// Embedder maps images and text into a shared D-dimensional vector space.
//
// Both methods must return unit-norm vectors of the same dimension so that
// image records and text queries are directly comparable under cosine
// distance. Implementations must be safe for concurrent use.
type Embedder interface {
	// EmbedImage computes the embedding of raw image bytes.
	EmbedImage(ctx context.Context, data []byte) ([]float32, error)

	// EmbedText computes the embedding of a free-text description.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the dimensionality of the output vectors.
	Dimension() int
}
