package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"unicode/utf8"

	"medrag/internal/domain"
)

const previewRuneLimit = 200

// DocumentRanker scores whole documents against a query by aggregating
// the similarity of their retrieved chunks.
type DocumentRanker struct {
	retriever *Retriever
	log       *slog.Logger
}

// NewDocumentRanker wires the ranking stage on top of the retriever.
func NewDocumentRanker(retriever *Retriever, log *slog.Logger) *DocumentRanker {
	return &DocumentRanker{retriever: retriever, log: log}
}

// documentTally accumulates per-document evidence while grouping hits.
type documentTally struct {
	total   float64
	count   int
	best    domain.SearchHit
	bestSet bool
	kind    domain.ContentKind
}

// RankDocuments surveys both collections with a pool of topKChunks hits
// each, groups the hits by document, drops documents backed by fewer
// than minChunks hits, and normalizes the summed scores. Hits without a
// document identity are skipped. An empty ranking is a value, not an
// error; an unknown normalization method is an error.
func (d *DocumentRanker) RankDocuments(ctx context.Context, query string, topKChunks int, method domain.NormalizationMethod, minChunks int) ([]domain.DocumentScore, error) {
	scores, _, err := d.rank(ctx, query, topKChunks, method, minChunks)
	return scores, err
}

// MostRelevantDocuments ranks the corpus and shapes the top-N documents
// into a response, attaching one preview chunk per document on request.
func (d *DocumentRanker) MostRelevantDocuments(ctx context.Context, query string, topN, surveyChunks, minChunks int, showPreviews bool, method domain.NormalizationMethod) (*domain.QueryToDocResponse, error) {
	scores, tallies, err := d.rank(ctx, query, surveyChunks, method, minChunks)
	if err != nil {
		return nil, err
	}

	totalFound := len(scores)
	if topN < len(scores) {
		scores = scores[:topN]
	}

	documents := make([]domain.DocumentSelectionResult, 0, len(scores))
	for i, score := range scores {
		entry := domain.DocumentSelectionResult{
			DocumentID:     score.DocumentID,
			RelevanceScore: score.Score,
			Rank:           i + 1,
		}
		if showPreviews {
			if t := tallies[score.DocumentID]; t != nil && t.bestSet {
				entry.PreviewText = truncatePreview(t.best.Text)
				entry.ContentSummary = &domain.ChunkSummary{
					FullText: t.best.Text,
					Page:     t.best.Page,
					Score:    t.best.Score,
					Kind:     t.kind,
				}
			}
		}
		documents = append(documents, entry)
	}

	resp := &domain.QueryToDocResponse{
		Status:              domain.StatusSuccess,
		Query:               query,
		TotalDocumentsFound: totalFound,
		DocumentsReturned:   len(documents),
		Documents:           documents,
		NormalizationMethod: method,
	}
	if len(scores) > 0 {
		resp.BestMatch = &domain.DocumentScore{DocumentID: scores[0].DocumentID, Score: scores[0].Score}
	} else {
		resp.Status = domain.StatusNoDocumentsFound
	}
	return resp, nil
}

func (d *DocumentRanker) rank(ctx context.Context, query string, pool int, method domain.NormalizationMethod, minChunks int) ([]domain.DocumentScore, map[string]*documentTally, error) {
	textHits, imageHits, err := d.retriever.SurveyCorpus(ctx, query, pool)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to survey corpus: %w", err)
	}

	tallies := map[string]*documentTally{}
	accumulate := func(hits []domain.SearchHit, kind domain.ContentKind) {
		for _, hit := range hits {
			if hit.DocumentID == "" {
				continue
			}
			t, ok := tallies[hit.DocumentID]
			if !ok {
				t = &documentTally{}
				tallies[hit.DocumentID] = t
			}
			t.total += hit.Score
			t.count++
			if !t.bestSet || hit.Score > t.best.Score {
				t.best = hit
				t.bestSet = true
				t.kind = kind
			}
		}
	}
	accumulate(textHits, domain.ContentText)
	accumulate(imageHits, domain.ContentImage)

	scores := make([]domain.DocumentScore, 0, len(tallies))
	for documentID, t := range tallies {
		if t.count < minChunks {
			continue
		}
		normalized, err := method.Normalize(t.total, t.count)
		if err != nil {
			return nil, nil, err
		}
		scores = append(scores, domain.DocumentScore{DocumentID: documentID, Score: normalized})
	}

	sortDocumentScores(scores)

	d.log.Debug("ranked documents",
		slog.String("query", query),
		slog.Int("candidates", len(tallies)),
		slog.Int("ranked", len(scores)),
	)
	return scores, tallies, nil
}

// sortDocumentScores orders by score descending, then document ID
// ascending so equal scores rank deterministically.
func sortDocumentScores(scores []domain.DocumentScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].DocumentID < scores[j].DocumentID
	})
}

func truncatePreview(text string) string {
	if utf8.RuneCountInString(text) <= previewRuneLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRuneLimit]) + "..."
}
