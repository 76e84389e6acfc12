package rag

import "errors"

// Error taxonomy for the query pipeline. Embedding and store errors abort
// the query and surface to the caller; translation and generation errors are
// absorbed locally and degrade the QueryContext instead.
var (
	ErrEmptyQuestion        = errors.New("question is required")
	ErrEmbeddingFailed      = errors.New("embedding failed")
	ErrStoreUnavailable     = errors.New("fragment store unavailable")
	ErrGeneratorUnavailable = errors.New("generator unavailable")
	ErrDimensionMismatch    = errors.New("embedding dimension does not match stored index")
)
