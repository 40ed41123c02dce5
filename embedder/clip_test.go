package embedder

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCLIPServer(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embed/image":
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)

			if string(body) == "corrupt" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_ = json.NewEncoder(w).Encode(embedResponse{Error: "cannot identify image file"})
				return
			}
			_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{3, 0, 0, 0}})
		case "/embed/text":
			var req struct {
				Text string `json:"text"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0, 2, 0, 0}})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestCLIPEmbedImage(t *testing.T) {
	srv := newCLIPServer(t)
	defer srv.Close()

	clip := NewCLIP(srv.URL, func(o *CLIPOptions) {
		o.Dimension = 4
	})
	require.Equal(t, 4, clip.Dimension())

	vec, err := clip.EmbedImage(context.Background(), []byte("image bytes"))
	require.NoError(t, err)

	// Responses are normalized on the client.
	assert.Equal(t, []float32{1, 0, 0, 0}, vec)
}

func TestCLIPEmbedText(t *testing.T) {
	srv := newCLIPServer(t)
	defer srv.Close()

	clip := NewCLIP(srv.URL, func(o *CLIPOptions) {
		o.Dimension = 4
	})

	vec, err := clip.EmbedText(context.Background(), "a cat")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0, 0}, vec)
}

func TestCLIPRejectedInput(t *testing.T) {
	srv := newCLIPServer(t)
	defer srv.Close()

	clip := NewCLIP(srv.URL, func(o *CLIPOptions) {
		o.Dimension = 4
	})

	_, err := clip.EmbedImage(context.Background(), []byte("corrupt"))
	assert.ErrorIs(t, err, ErrEncode)
	assert.Contains(t, err.Error(), "cannot identify image file")
}

func TestCLIPDimensionMismatch(t *testing.T) {
	srv := newCLIPServer(t)
	defer srv.Close()

	clip := NewCLIP(srv.URL) // default 512, server returns 4
	_, err := clip.EmbedImage(context.Background(), []byte("image bytes"))
	assert.ErrorContains(t, err, "dimension")
}

func TestCLIPServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	clip := NewCLIP(srv.URL, func(o *CLIPOptions) {
		o.Dimension = 4
	})

	_, err := clip.EmbedImage(context.Background(), []byte("image bytes"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEncode)
	assert.Contains(t, err.Error(), "status 500")
}

func TestCLIPRateLimiterHonorsContext(t *testing.T) {
	srv := newCLIPServer(t)
	defer srv.Close()

	clip := NewCLIP(srv.URL, func(o *CLIPOptions) {
		o.Dimension = 4
		o.RequestsPerSecond = 0.001
	})

	// First request consumes the burst.
	_, err := clip.EmbedText(context.Background(), "warm up")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = clip.EmbedText(ctx, "blocked")
	assert.Error(t, err)
}
