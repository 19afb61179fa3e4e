package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"medrag/internal/domain"
)

const (
	retrievalTTL       = 10 * time.Minute
	retrievalKeyFormat = "retrieval:%s:%d:%s"
	fallbackLimit      = 2
)

// RetrievalConfig carries the search parameters the retriever needs.
type RetrievalConfig struct {
	ScoreThreshold float64
	Candidates     int
}

// Retriever runs the dual-collection nearest-neighbor search and merges
// the hits with side data into context chunks.
type Retriever struct {
	encoder domain.VectorEncoder
	store   domain.VectorStore
	side    *SideDataEnricher
	cache   domain.Cache
	cfg     RetrievalConfig
	log     *slog.Logger
}

// NewRetriever wires the retrieval stage.
func NewRetriever(encoder domain.VectorEncoder, store domain.VectorStore, side *SideDataEnricher, extCache domain.Cache, cfg RetrievalConfig, log *slog.Logger) *Retriever {
	return &Retriever{
		encoder: encoder,
		store:   store,
		side:    side,
		cache:   extCache,
		cfg:     cfg,
		log:     log,
	}
}

// Retrieve embeds the query once, searches both collections, keeps
// chunks scoring strictly above the threshold, and enriches text chunks
// with page-matched tables. Results are cached per query/limit/filter.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int, documentID string) (*domain.RetrievalResult, error) {
	cacheKey := fmt.Sprintf(retrievalKeyFormat, query, limit, documentID)
	if data, ok := r.cache.Get(ctx, cacheKey); ok {
		if result, err := domain.DecodeRetrievalResult(data); err == nil {
			return result, nil
		}
	}

	textHits, imageHits, err := r.searchBoth(ctx, query, r.cfg.Candidates, limit, documentID)
	if err != nil {
		return nil, err
	}

	textHits = filterByThreshold(textHits, r.cfg.ScoreThreshold)
	imageHits = filterByThreshold(imageHits, r.cfg.ScoreThreshold)

	result := r.assemble(ctx, textHits, imageHits, domain.StageThresholdFiltered)

	if data, err := domain.EncodeJSON(result); err == nil {
		r.cache.Set(ctx, cacheKey, data, retrievalTTL)
	}
	return result, nil
}

// FallbackRetrieve reruns both searches with a small fixed limit, no
// threshold and no document filter, guaranteeing content whenever the
// store has any match at all.
func (r *Retriever) FallbackRetrieve(ctx context.Context, query string) (*domain.RetrievalResult, error) {
	textHits, imageHits, err := r.searchBoth(ctx, query, r.cfg.Candidates, fallbackLimit, "")
	if err != nil {
		return nil, err
	}
	return r.assemble(ctx, textHits, imageHits, domain.StageFallbackApplied), nil
}

// SurveyCorpus gathers candidate hits across the whole corpus for
// document ranking: a larger pool, no document filter, no threshold.
func (r *Retriever) SurveyCorpus(ctx context.Context, query string, pool int) (textHits, imageHits []domain.SearchHit, err error) {
	return r.searchBoth(ctx, query, pool*2, pool, "")
}

func (r *Retriever) searchBoth(ctx context.Context, query string, candidates, limit int, documentID string) ([]domain.SearchHit, []domain.SearchHit, error) {
	vector, err := r.encoder.Embed(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var textHits, imageHits []domain.SearchHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := r.store.Search(gctx, domain.CollectionText, vector, candidates, limit, documentID)
		if err != nil {
			r.log.Warn("text collection search failed", slog.String("error", err.Error()))
			return nil
		}
		textHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := r.store.Search(gctx, domain.CollectionImage, vector, candidates, limit, documentID)
		if err != nil {
			r.log.Warn("image collection search failed", slog.String("error", err.Error()))
			return nil
		}
		imageHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return textHits, imageHits, nil
}

func (r *Retriever) assemble(ctx context.Context, textHits, imageHits []domain.SearchHit, stage domain.RetrievalStage) *domain.RetrievalResult {
	chunks := make([]domain.ContextChunk, 0, len(textHits)+len(imageHits))
	snapshot := map[string]domain.SideData{}

	for _, hit := range textHits {
		tables := []domain.TableRecord{}
		if hit.DocumentID != "" {
			side, seen := snapshot[hit.DocumentID]
			if !seen {
				side = r.side.Fetch(ctx, hit.DocumentID)
				snapshot[hit.DocumentID] = side
			}
			tables = side.TablesForPage(hit.Page)
		}
		chunks = append(chunks, domain.NewContextChunk(domain.ContentText, hit.Text, hit.DocumentID, hit.Page, hit.Score, tables))
	}

	for _, hit := range imageHits {
		chunks = append(chunks, domain.NewContextChunk(domain.ContentImage, hit.Text, hit.DocumentID, hit.Page, hit.Score, nil))
	}

	if len(chunks) == 0 {
		stage = domain.StageEmpty
	}

	result := &domain.RetrievalResult{
		Chunks:    chunks,
		RawText:   textHits,
		RawImages: imageHits,
		SideData:  snapshot,
		Stage:     stage,
	}
	result.Normalize()
	return result
}

// filterByThreshold keeps hits scoring strictly above the cutoff.
func filterByThreshold(hits []domain.SearchHit, threshold float64) []domain.SearchHit {
	kept := hits[:0]
	for _, h := range hits {
		if h.Score > threshold {
			kept = append(kept, h)
		}
	}
	return kept
}
