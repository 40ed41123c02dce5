package imgsim

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/hupe1980/imgsim/distance"
	"github.com/hupe1980/imgsim/vectorstore"
)

// Match is one search result.
type Match struct {
	// ID is the canonical path of the matched image.
	ID string

	// Similarity is the cosine similarity to the query, in [-1, 1]
	// (1 - cosine distance). Results are ordered by descending similarity.
	Similarity float32

	// Metadata carries the file facts stored at ingestion time.
	Metadata vectorstore.Metadata
}

// SearchSimilar finds the topK images most similar to the image at
// imagePath. The query image itself is excluded from the results when it is
// part of the collection.
//
// A query image that cannot be read or embedded yields an empty result with
// a nil error; only store-level failures are returned as errors.
func (e *Engine) SearchSimilar(ctx context.Context, imagePath string, topK int) ([]Match, error) {
	start := time.Now()

	matches, err := e.searchSimilar(ctx, imagePath, topK)

	e.metrics.RecordSearch("image", topK, time.Since(start), err)
	e.logger.LogSearch(ctx, "image", topK, len(matches), err)

	return matches, err
}

func (e *Engine) searchSimilar(ctx context.Context, imagePath string, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	id, err := e.canonicalID(imagePath)
	if err != nil {
		e.logger.WarnContext(ctx, "query image path invalid", "path", imagePath, "error", err)
		return nil, nil
	}

	data, err := os.ReadFile(id)
	if err != nil {
		e.logger.WarnContext(ctx, "query image unreadable", "id", id, "error", err)
		return nil, nil
	}

	vec, err := e.embedImage(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.WarnContext(ctx, "query image could not be embedded", "id", id, "error", err)
		return nil, nil
	}

	// Request one extra neighbor so the query image can be dropped without
	// shrinking the result set.
	results, err := e.store.Query(ctx, vec, topK+1)
	if err != nil {
		return nil, translateError(err)
	}

	matches := toMatches(results, id)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// SearchByText finds the topK images most similar to a free-text
// description. Unlike SearchSimilar there is no self-match to exclude.
//
// A query the model cannot embed yields an empty result with a nil error.
func (e *Engine) SearchByText(ctx context.Context, query string, topK int) ([]Match, error) {
	start := time.Now()

	matches, err := e.searchByText(ctx, query, topK)

	e.metrics.RecordSearch("text", topK, time.Since(start), err)
	e.logger.LogSearch(ctx, "text", topK, len(matches), err)

	return matches, err
}

func (e *Engine) searchByText(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	vec, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.WarnContext(ctx, "query text could not be embedded", "error", err)
		return nil, nil
	}

	results, err := e.store.Query(ctx, vec, topK)
	if err != nil {
		return nil, translateError(err)
	}

	return toMatches(results, ""), nil
}

// toMatches converts store results to Matches, dropping excludeID and
// re-affirming descending similarity order.
func toMatches(results []vectorstore.QueryResult, excludeID string) []Match {
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		matches = append(matches, Match{
			ID:         r.ID,
			Similarity: distance.Similarity(r.Distance),
			Metadata:   r.Metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	return matches
}
