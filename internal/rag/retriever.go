package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// Retrieval bounds. RequestedTopK from callers is clamped into
// [1, DefaultMaxTopK]; the candidate fetch always uses the ceiling so the
// threshold filter has headroom when near-duplicate chunks dominate the raw
// top of the ranking; the filtered list is cut to DefaultFinalTopK.
const (
	DefaultTopK          = 5
	DefaultMaxTopK       = 20
	DefaultFinalTopK     = 5
	DefaultMinSimilarity = 0.80
)

// Embedder turns text into a fixed-dimension vector. Implemented by
// *ollama.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher returns the nearest chunks for a query embedding, ordered by
// ascending distance, at most limit results. Implemented by
// *knowledge.Store.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, limit int) ([]Hit, error)
}

// RetrieverConfig tunes a Retriever. Zero fields fall back to the package
// defaults.
type RetrieverConfig struct {
	MinSimilarity float64
	DefaultTopK   int
	MaxTopK       int
	FinalTopK     int
}

// Retriever orchestrates query embedding, nearest-neighbor search and
// confidence filtering into a ranked, evidence-backed result set.
//
// Retriever is safe for concurrent use.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	cfg      RetrieverConfig
	logger   *slog.Logger
}

// NewRetriever creates a Retriever. logger may be nil.
func NewRetriever(embedder Embedder, searcher Searcher, cfg RetrieverConfig, logger *slog.Logger) *Retriever {
	if cfg.MinSimilarity == 0 {
		cfg.MinSimilarity = DefaultMinSimilarity
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = DefaultMaxTopK
	}
	if cfg.FinalTopK <= 0 {
		cfg.FinalTopK = DefaultFinalTopK
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		cfg:      cfg,
		logger:   logger,
	}
}

// ClampTopK normalizes a caller-supplied topK into [1, MaxTopK], using the
// configured default for non-positive values.
func (r *Retriever) ClampTopK(requested int) int {
	if requested <= 0 {
		return r.cfg.DefaultTopK
	}
	return min(requested, r.cfg.MaxTopK)
}

// Retrieve embeds the query, fetches an oversized candidate set, keeps only
// candidates at or above the similarity threshold and truncates the result
// to the final cap. An empty result is the confirmed no-evidence outcome,
// not an error: the caller must not invoke the generation model for it.
// The returned float64 is the threshold that was applied.
func (r *Retriever) Retrieve(ctx context.Context, query string, requestedTopK int) ([]Hit, float64, error) {
	// The candidate fetch always uses the ceiling so the filter has
	// headroom; the caller's topK only ever shrinks the final cut, never
	// grows it past FinalTopK.
	finalCap := min(r.cfg.FinalTopK, r.ClampTopK(requestedTopK))

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, r.cfg.MinSimilarity, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := r.searcher.Search(ctx, embedding, r.cfg.MaxTopK)
	if err != nil {
		return nil, r.cfg.MinSimilarity, fmt.Errorf("searching chunks: %w", err)
	}

	kept := make([]Hit, 0, finalCap)
	for _, h := range candidates {
		if h.Similarity >= r.cfg.MinSimilarity {
			kept = append(kept, h)
			if len(kept) == finalCap {
				break
			}
		}
	}

	r.logger.Debug("retrieval complete",
		"candidates", len(candidates),
		"kept", len(kept),
		"threshold", r.cfg.MinSimilarity,
	)
	for _, h := range candidates {
		r.logger.Debug("candidate similarity",
			"chunk_id", h.ChunkID,
			"similarity", h.Similarity,
			"accepted", h.Similarity >= r.cfg.MinSimilarity,
		)
	}

	return kept, r.cfg.MinSimilarity, nil
}
