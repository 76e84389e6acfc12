package rag

import "context"

// Embedder maps text to a fixed-length vector. Deterministic for a given
// model version; Dimensions must match the stored index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Generator produces a free-text completion for a system+user prompt pair.
// Ping is the availability probe: it must return quickly and never hang, so
// the pipeline can choose between calling and skipping generation.
type Generator interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
	Ping(ctx context.Context) error
}

// Repository is the fragment store boundary.
type Repository interface {
	InsertFragment(ctx context.Context, f *Fragment, embedding []float32) (int64, error)
	// SearchSimilar returns the top-k fragments by cosine similarity,
	// ranked best first; equal scores come back in ascending id order.
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]RetrievalResult, error)
	// Reset drops and recreates the index for wholesale re-ingestion.
	Reset(ctx context.Context) error
	Info(ctx context.Context) (IndexInfo, error)
}
