package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/imgsim/distance"
)

// Compile-time check.
var _ Embedder = (*CLIP)(nil)

// CLIPOptions configures the CLIP HTTP adapter.
type CLIPOptions struct {
	// HTTPClient performs the requests. Defaults to a client with a 30s
	// timeout.
	HTTPClient *http.Client

	// Dimension is the dimensionality of the served model's embeddings.
	// Defaults to 512 (ViT-B/32).
	Dimension int

	// RequestsPerSecond rate-limits calls to the sidecar. If 0, unlimited.
	RequestsPerSecond float64
}

// CLIP embeds images and text by calling a model-serving sidecar over HTTP.
//
// The sidecar exposes two endpoints under the base URL:
//
//	POST {base}/embed/image   body: raw image bytes (application/octet-stream)
//	POST {base}/embed/text    body: {"text": "..."}  (application/json)
//
// Both respond with {"embedding": [ ... ]}. Returned vectors are normalized
// on the client so the store always receives unit-norm input.
type CLIP struct {
	baseURL string
	client  *http.Client
	dim     int
	limiter *rate.Limiter // nil if unlimited
}

// NewCLIP creates a CLIP adapter for the sidecar at baseURL.
func NewCLIP(baseURL string, optFns ...func(o *CLIPOptions)) *CLIP {
	opts := CLIPOptions{
		Dimension: 512,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	c := &CLIP{
		baseURL: baseURL,
		client:  opts.HTTPClient,
		dim:     opts.Dimension,
	}

	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return c
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// EmbedImage implements Embedder.
func (c *CLIP) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	return c.post(ctx, "/embed/image", "application/octet-stream", bytes.NewReader(data))
}

// EmbedText implements Embedder.
func (c *CLIP) EmbedText(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal text request: %w", err)
	}
	return c.post(ctx, "/embed/text", "application/json", bytes.NewReader(body))
}

// Dimension implements Embedder.
func (c *CLIP) Dimension() int { return c.dim }

func (c *CLIP) post(ctx context.Context, path, contentType string, body io.Reader) ([]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embedding service: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}

	var er embedResponse
	if jsonErr := json.Unmarshal(payload, &er); jsonErr != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("decode embedding response: %w", jsonErr)
	}

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		// The model rejected this specific input.
		return nil, fmt.Errorf("%w: %s", ErrEncode, er.Error)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, er.Error)
	}

	if len(er.Embedding) != c.dim {
		return nil, fmt.Errorf("embedding service returned dimension %d, want %d", len(er.Embedding), c.dim)
	}

	if !distance.NormalizeL2InPlace(er.Embedding) {
		return nil, fmt.Errorf("%w: embedding service returned a zero vector", ErrEncode)
	}

	return er.Embedding, nil
}
