package domain

import (
	"context"
	"errors"
)

// ErrObjectNotFound reports a missing blob. A missing side-data object is
// expected and treated as an empty facet, never as a pipeline failure.
var ErrObjectNotFound = errors.New("object not found")

// BlobStore fetches raw objects by key.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}
