package domain

import "context"

// Collection names one of the two logical vector collections.
type Collection string

const (
	CollectionText  Collection = "text"
	CollectionImage Collection = "image"
)

// VectorStore runs approximate nearest-neighbor queries against one
// collection. documentID, when non-empty, restricts hits to that
// document via the nested metadata field.
type VectorStore interface {
	Search(ctx context.Context, collection Collection, vector []float32, numCandidates, limit int, documentID string) ([]SearchHit, error)
}
