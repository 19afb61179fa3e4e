package domain

import (
	"context"
	"errors"
)

// ErrEmbeddingUnavailable is returned once the embedding service has
// exhausted its retry budget. It is fatal for the current query.
var ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

// VectorEncoder turns text into a fixed-length embedding vector.
type VectorEncoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Version() string
}
