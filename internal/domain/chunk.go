package domain

// ContentKind identifies which vector collection a chunk came from.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
)

// TableRecord is one extracted table tied to a document page. CSV holds
// the raw comma-separated rows as produced by the extraction stage.
type TableRecord struct {
	CSV  string `json:"csv_string"`
	Page int    `json:"page"`
}

// ImageCaption is one extracted figure caption tied to a document page.
type ImageCaption struct {
	Caption string `json:"caption"`
	Page    int    `json:"page_number"`
}

// SideData bundles the structured extras (tables, captions) stored next
// to a document outside the vector index.
type SideData struct {
	Tables []TableRecord  `json:"tables"`
	Images []ImageCaption `json:"images"`
}

// ContextChunk is a scored unit of retrieved content. Score is the raw
// similarity reported by the search stage and is never renormalized.
type ContextChunk struct {
	Kind       ContentKind   `json:"content_kind"`
	Text       string        `json:"text"`
	DocumentID string        `json:"document_id"`
	Page       int           `json:"page"`
	Score      float64       `json:"score"`
	Tables     []TableRecord `json:"tables"`
}

// NewContextChunk builds a chunk with the Tables-never-nil invariant applied.
func NewContextChunk(kind ContentKind, text, documentID string, page int, score float64, tables []TableRecord) ContextChunk {
	if tables == nil {
		tables = []TableRecord{}
	}
	return ContextChunk{
		Kind:       kind,
		Text:       text,
		DocumentID: documentID,
		Page:       page,
		Score:      score,
		Tables:     tables,
	}
}

// SearchHit is a raw vector-store result before it becomes a chunk.
type SearchHit struct {
	Text       string  `json:"text"`
	DocumentID string  `json:"document_id"`
	Page       int     `json:"page"`
	Score      float64 `json:"score"`
}

// RetrievalStage records how far the threshold/fallback cascade ran for
// a retrieval, so callers can test the precedence explicitly.
type RetrievalStage string

const (
	StageThresholdFiltered RetrievalStage = "threshold_filtered"
	StageFallbackApplied   RetrievalStage = "fallback_applied"
	StageEmpty             RetrievalStage = "empty"
)

// RetrievalResult carries the enriched chunks plus the raw per-collection
// hits and the side-data snapshot observed during this retrieval cycle.
type RetrievalResult struct {
	Chunks    []ContextChunk      `json:"context_chunks"`
	RawText   []SearchHit         `json:"raw_text_matches"`
	RawImages []SearchHit         `json:"raw_image_matches"`
	SideData  map[string]SideData `json:"side_data"`
	Stage     RetrievalStage      `json:"stage"`
}

func (r *RetrievalResult) HasContent() bool {
	return len(r.Chunks) > 0
}

// Normalize restores invariants after a decode from the cache: Tables
// slices must be non-nil and the maps/slices must exist.
func (r *RetrievalResult) Normalize() {
	for i := range r.Chunks {
		if r.Chunks[i].Tables == nil {
			r.Chunks[i].Tables = []TableRecord{}
		}
	}
	if r.SideData == nil {
		r.SideData = map[string]SideData{}
	}
}

// TablesForPage selects the side-data tables matching a chunk's page by
// exact equality.
func (s SideData) TablesForPage(page int) []TableRecord {
	matched := []TableRecord{}
	for _, t := range s.Tables {
		if t.Page == page {
			matched = append(matched, t)
		}
	}
	return matched
}
