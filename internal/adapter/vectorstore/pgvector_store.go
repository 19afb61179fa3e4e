package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"medrag/internal/domain"
)

// collection tables share one layout: content text, metadata jsonb
// (document_id, page), embedding vector.
var collectionTables = map[domain.Collection]string{
	domain.CollectionText:  "text_embeddings",
	domain.CollectionImage: "image_embeddings",
}

// PgVectorStore answers nearest-neighbor queries from pgvector-backed
// collection tables.
type PgVectorStore struct {
	pool *pgxpool.Pool
}

// NewPgVectorStore wraps an existing connection pool.
func NewPgVectorStore(pool *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{pool: pool}
}

// Search returns up to limit hits ordered by cosine similarity.
// numCandidates widens the HNSW candidate list for this query only.
// A non-empty documentID restricts hits via the nested metadata field.
func (s *PgVectorStore) Search(ctx context.Context, collection domain.Collection, vector []float32, numCandidates, limit int, documentID string) ([]domain.SearchHit, error) {
	table, ok := collectionTables[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin search tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if numCandidates > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", numCandidates)); err != nil {
			return nil, fmt.Errorf("failed to set candidate count: %w", err)
		}
	}

	query := fmt.Sprintf(`
		SELECT
			content,
			COALESCE(metadata->>'document_id', ''),
			COALESCE((metadata->>'page')::int, 0),
			1 - (embedding <=> $1) AS score
		FROM %s
		WHERE $2 = '' OR metadata->>'document_id' = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, table)

	rows, err := tx.Query(ctx, query, pgvector.NewVector(vector), documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		var h domain.SearchHit
		if err := rows.Scan(&h.Text, &h.DocumentID, &h.Page, &h.Score); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit search tx: %w", err)
	}

	return hits, nil
}

var _ domain.VectorStore = (*PgVectorStore)(nil)
