// Package imgsim provides an embedding-indexed image similarity search
// engine.
//
// Imgsim computes fixed-length embedding vectors for a corpus of images,
// persists them in a vector store keyed by canonical file path, and answers
// top-k similarity queries for both image and text queries in a shared
// cosine metric space:
//
//   - Idempotent ingestion: unchanged files (same modification time) are
//     never re-embedded
//   - Per-file error recovery: missing or unreadable images are skipped and
//     reported, never abort a batch
//   - Cross-modal search: text queries rank images in the same vector space
//   - Pluggable vector stores: in-memory flat index with snapshot
//     persistence, or a SQLite-backed store
//   - Snapshot backup/restore to local, MinIO or S3 blob archives
//
// # Quick Start
//
//	ctx := context.Background()
//
//	store, err := flat.Open("./index.snap")
//	if err != nil {
//	    panic(err)
//	}
//
//	engine, err := imgsim.New(embedder.NewCLIP("http://localhost:8000"), store)
//	if err != nil {
//	    panic(err)
//	}
//	defer engine.Close()
//
//	report, err := engine.BuildDatabase(ctx, "/mnt/c/Users/me/Pictures")
//	if err != nil {
//	    panic(err)
//	}
//	fmt.Printf("indexed %d images (%d fresh)\n", report.Total, report.Fresh)
//
//	matches, err := engine.SearchByText(ctx, "a cat sleeping on a sofa", 5)
//	if err != nil {
//	    panic(err)
//	}
//	for _, m := range matches {
//	    fmt.Printf("%.3f  %s\n", m.Similarity, m.ID)
//	}
package imgsim

import (
	"github.com/hupe1980/imgsim/embedder"
	"github.com/hupe1980/imgsim/resource"
	"github.com/hupe1980/imgsim/vectorstore"
)

// Engine ties an Embedder and a vector store together into the similarity
// search facade. All methods are safe for concurrent use; queries may run
// concurrently with ingestion and observe a partially updated collection.
type Engine struct {
	embedder  embedder.Embedder
	store     vectorstore.Store
	logger    *Logger
	metrics   MetricsCollector
	resources *resource.Controller
	exts      map[string]struct{}
}

// New creates a new Engine over the given embedder and vector store.
func New(e embedder.Embedder, s vectorstore.Store, optFns ...Option) (*Engine, error) {
	if e == nil {
		return nil, ErrNoEmbedder
	}
	if s == nil {
		return nil, ErrNoStore
	}

	opts := applyOptions(optFns)

	exts := make(map[string]struct{}, len(opts.extensions))
	for _, ext := range opts.extensions {
		exts[normalizeExt(ext)] = struct{}{}
	}

	return &Engine{
		embedder:  e,
		store:     s,
		logger:    opts.logger,
		metrics:   opts.metricsCollector,
		resources: resource.NewController(opts.resources),
		exts:      exts,
	}, nil
}

// Close releases the underlying vector store.
func (e *Engine) Close() error {
	return e.store.Close()
}
