package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"medrag/internal/domain"
)

// Fixed answers for the expected no-content outcomes. They are values
// returned to the caller, never errors.
const (
	msgNoRelevantInfo    = "No relevant information found."
	msgNoContentualInfo  = "No relevant information with content was found."
	msgNoDocumentsInBase = "No relevant documents found in the knowledge base."
)

// PipelineConfig carries the tunables of the end-to-end question path.
type PipelineConfig struct {
	DefaultTopK        int
	DocSelectionChunks int
	MinDocumentChunks  int
	MaxDocuments       int
	Normalization      domain.NormalizationMethod
}

// Pipeline composes retrieval, ranking, context assembly and generation
// into the question-answering paths exposed to transports.
type Pipeline struct {
	retriever *Retriever
	ranker    *DocumentRanker
	assembler *ContextAssembler
	generator *ResponseGenerator
	cfg       PipelineConfig
	log       *slog.Logger
}

// NewPipeline wires the full pipeline.
func NewPipeline(retriever *Retriever, ranker *DocumentRanker, assembler *ContextAssembler, generator *ResponseGenerator, cfg PipelineConfig, log *slog.Logger) *Pipeline {
	return &Pipeline{
		retriever: retriever,
		ranker:    ranker,
		assembler: assembler,
		generator: generator,
		cfg:       cfg,
		log:       log,
	}
}

// Run answers a question, optionally scoped to one document addressed by
// its storage key. The model is called at most once per run; the
// expected empty-retrieval outcomes short-circuit with fixed answers.
func (p *Pipeline) Run(ctx context.Context, question, documentKey string, topK int) (*domain.AnswerResult, error) {
	documentID := ""
	if documentKey != "" {
		documentID = domain.DocumentIDFromKey(domain.NormalizeDocumentKey(documentKey))
	}
	return p.run(ctx, question, documentID, topK)
}

func (p *Pipeline) run(ctx context.Context, question, documentID string, topK int) (*domain.AnswerResult, error) {
	if topK <= 0 {
		topK = p.cfg.DefaultTopK
	}

	result, err := p.retriever.Retrieve(ctx, question, topK, documentID)
	if err != nil {
		return nil, err
	}

	if !result.HasContent() {
		result, err = p.retriever.FallbackRetrieve(ctx, question)
		if err != nil {
			return nil, err
		}
	}

	if !result.HasContent() {
		p.log.Info("retrieval produced no chunks",
			slog.String("document_id", documentID),
			slog.String("stage", string(result.Stage)),
		)
		return &domain.AnswerResult{Answer: msgNoRelevantInfo, ContextUsed: []domain.ContextChunk{}}, nil
	}

	contextBlock := p.assembler.Build(result.Chunks)
	if contextBlock == "" {
		return &domain.AnswerResult{Answer: msgNoContentualInfo, ContextUsed: []domain.ContextChunk{}}, nil
	}

	answer, err := p.generator.Generate(ctx, question, contextBlock)
	if err != nil {
		return nil, err
	}
	return &domain.AnswerResult{Answer: answer, ContextUsed: result.Chunks}, nil
}

// AskWithAutoSelection ranks the corpus, scopes the run to the top
// document, and reports the selection alongside the answer. Ranking and
// generation failures become typed outcomes, not transport errors.
func (p *Pipeline) AskWithAutoSelection(ctx context.Context, question string) (*domain.AutoQueryResponse, error) {
	scores, err := p.ranker.RankDocuments(ctx, question, p.cfg.DocSelectionChunks, p.cfg.Normalization, p.cfg.MinDocumentChunks)
	if err != nil {
		return nil, err
	}

	if len(scores) == 0 {
		return &domain.AutoQueryResponse{
			Status:          domain.StatusNoDocumentsFound,
			Query:           question,
			Answer:          msgNoDocumentsInBase,
			SelectionMethod: p.cfg.Normalization,
		}, nil
	}

	best := scores[0]
	result, err := p.run(ctx, question, best.DocumentID, 0)
	if err != nil {
		p.log.Error("answer generation failed after document selection",
			slog.String("document_id", best.DocumentID),
			slog.String("error", err.Error()),
		)
		return &domain.AutoQueryResponse{
			Status:              domain.StatusGenerationFailed,
			Query:               question,
			SelectedDocument:    best.DocumentID,
			SelectionScore:      best.Score,
			Answer:              fmt.Sprintf("Document selected successfully but failed to generate answer: %v", err),
			DocumentsConsidered: len(scores),
			SelectionMethod:     p.cfg.Normalization,
		}, nil
	}

	return &domain.AutoQueryResponse{
		Status:              domain.StatusSuccess,
		Query:               question,
		SelectedDocument:    best.DocumentID,
		SelectionScore:      best.Score,
		Answer:              result.Answer,
		DocumentsConsidered: len(scores),
		SelectionMethod:     p.cfg.Normalization,
	}, nil
}

// MostRelevantDocuments exposes corpus-wide document ranking with the
// configured selection parameters.
func (p *Pipeline) MostRelevantDocuments(ctx context.Context, question string, topN int, showPreviews bool) (*domain.QueryToDocResponse, error) {
	if topN <= 0 || topN > p.cfg.MaxDocuments {
		topN = p.cfg.MaxDocuments
	}
	return p.ranker.MostRelevantDocuments(ctx, question, topN, p.cfg.DocSelectionChunks, p.cfg.MinDocumentChunks, showPreviews, p.cfg.Normalization)
}

// RetrieveContext exposes the retrieval stage without generation, for
// inspection and debugging.
func (p *Pipeline) RetrieveContext(ctx context.Context, question string, topK int, documentKey string) (*domain.RetrievalResult, error) {
	if topK <= 0 {
		topK = p.cfg.DefaultTopK
	}
	documentID := ""
	if documentKey != "" {
		documentID = domain.DocumentIDFromKey(domain.NormalizeDocumentKey(documentKey))
	}
	return p.retriever.Retrieve(ctx, question, topK, documentID)
}

// GenerateDirect answers conversational questions that need no document
// context, still through the single-call generator. The empty context
// lets the model fall back to general knowledge.
func (p *Pipeline) GenerateDirect(ctx context.Context, question string) (string, error) {
	return p.generator.Generate(ctx, question, "")
}
