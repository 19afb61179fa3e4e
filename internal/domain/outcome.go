package domain

// OutcomeStatus classifies the externally observable result of the
// document-selection and answer paths. Expected "no content" outcomes are
// values, not errors.
type OutcomeStatus string

const (
	StatusSuccess          OutcomeStatus = "success"
	StatusNoDocumentsFound OutcomeStatus = "no_documents_found"
	StatusGenerationFailed OutcomeStatus = "generation_failed"
)

// DocumentScore pairs a document with its normalized ranking score.
type DocumentScore struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// ChunkSummary captures the preview chunk attached to a ranked document.
type ChunkSummary struct {
	FullText string      `json:"full_text"`
	Page     int         `json:"page"`
	Score    float64     `json:"chunk_score"`
	Kind     ContentKind `json:"content_kind"`
}

// DocumentSelectionResult is one entry of a ranked document list.
type DocumentSelectionResult struct {
	DocumentID     string        `json:"document_id"`
	RelevanceScore float64       `json:"relevance_score"`
	Rank           int           `json:"rank"`
	PreviewText    string        `json:"preview_text,omitempty"`
	ContentSummary *ChunkSummary `json:"content_summary,omitempty"`
}

// QueryToDocResponse is the aggregate outcome of ranking documents for a
// query.
type QueryToDocResponse struct {
	Status              OutcomeStatus             `json:"status"`
	Query               string                    `json:"query"`
	TotalDocumentsFound int                       `json:"total_documents_found"`
	DocumentsReturned   int                       `json:"documents_returned"`
	Documents           []DocumentSelectionResult `json:"documents"`
	BestMatch           *DocumentScore            `json:"best_match,omitempty"`
	NormalizationMethod NormalizationMethod       `json:"normalization_method"`
}

// AutoQueryResponse is the aggregate outcome of auto-selecting a document
// and answering against it.
type AutoQueryResponse struct {
	Status              OutcomeStatus       `json:"status"`
	Query               string              `json:"query"`
	SelectedDocument    string              `json:"selected_document,omitempty"`
	SelectionScore      float64             `json:"selection_score,omitempty"`
	Answer              string              `json:"answer"`
	DocumentsConsidered int                 `json:"documents_considered"`
	SelectionMethod     NormalizationMethod `json:"selection_method"`
}

// AnswerResult is the terminal output of the main run path: the cleaned
// answer plus the chunks that backed it.
type AnswerResult struct {
	Answer      string         `json:"answer"`
	ContextUsed []ContextChunk `json:"context_used"`
}
