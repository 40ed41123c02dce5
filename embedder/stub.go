package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"

	"github.com/hupe1980/imgsim/distance"
)

// Compile-time check.
var _ Embedder = (*Stub)(nil)

// Stub is a deterministic in-process Embedder for tests.
//
// Inputs with registered vectors return them (normalized); everything else
// gets a pseudo-random unit vector derived from a hash of the input, so the
// same input always embeds to the same point.
type Stub struct {
	mu     sync.RWMutex
	dim    int
	images map[string][]float32 // keyed by the raw image bytes
	texts  map[string][]float32
	fail   map[string]struct{} // image contents that refuse to embed
}

// NewStub creates a stub emitting vectors of the given dimension.
func NewStub(dim int) *Stub {
	return &Stub{
		dim:    dim,
		images: make(map[string][]float32),
		texts:  make(map[string][]float32),
		fail:   make(map[string]struct{}),
	}
}

// SetImageVector pins the embedding for images with exactly these bytes.
func (s *Stub) SetImageVector(content string, vec []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[content] = vec
}

// SetTextVector pins the embedding for this exact query text.
func (s *Stub) SetTextVector(text string, vec []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[text] = vec
}

// FailImage makes images with exactly these bytes fail with ErrEncode,
// simulating corrupt or unsupported input.
func (s *Stub) FailImage(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[content] = struct{}{}
}

// EmbedImage implements Embedder.
func (s *Stub) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, bad := s.fail[string(data)]; bad {
		return nil, fmt.Errorf("%w: unreadable image", ErrEncode)
	}
	if vec, ok := s.images[string(data)]; ok {
		return s.normalized(vec)
	}
	return s.derive("image:" + string(data))
}

// EmbedText implements Embedder.
func (s *Stub) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if vec, ok := s.texts[text]; ok {
		return s.normalized(vec)
	}
	return s.derive("text:" + text)
}

// Dimension implements Embedder.
func (s *Stub) Dimension() int { return s.dim }

func (s *Stub) normalized(vec []float32) ([]float32, error) {
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: fixture vector has dimension %d, want %d", ErrEncode, len(vec), s.dim)
	}
	norm, ok := distance.NormalizeL2Copy(vec)
	if !ok {
		return nil, fmt.Errorf("%w: zero fixture vector", ErrEncode)
	}
	return norm, nil
}

// derive produces a stable unit vector from a hash of the input.
func (s *Stub) derive(input string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(input))
	rng := rand.New(rand.NewSource(int64(h.Sum64()))) // nolint gosec

	vec := make([]float32, s.dim)
	for i := range vec {
		vec[i] = rng.Float32()*2 - 1
	}
	if !distance.NormalizeL2InPlace(vec) {
		return nil, fmt.Errorf("%w: degenerate derived vector", ErrEncode)
	}
	return vec, nil
}
