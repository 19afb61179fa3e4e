package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
	"medrag/internal/usecase"
)

type pipelineFixture struct {
	pipeline *usecase.Pipeline
	encoder  *mockEncoder
	store    *mockVectorStore
	blobs    *mockBlobStore
	llm      *mockLLM
}

func newPipelineFixture() *pipelineFixture {
	encoder := &mockEncoder{}
	store := &mockVectorStore{}
	blobs := &mockBlobStore{}
	llm := &mockLLM{}
	extCache := newMemCache()
	log := discardLogger()

	side := usecase.NewSideDataEnricher(extCache, blobs, "extracted_data", log)
	retriever := usecase.NewRetriever(encoder, store, side, extCache, usecase.RetrievalConfig{
		ScoreThreshold: 0.75,
		Candidates:     100,
	}, log)
	ranker := usecase.NewDocumentRanker(retriever, log)
	assembler := usecase.NewContextAssembler(5)
	generator := usecase.NewResponseGenerator(llm, log)

	pipeline := usecase.NewPipeline(retriever, ranker, assembler, generator, usecase.PipelineConfig{
		DefaultTopK:        5,
		DocSelectionChunks: 10,
		MinDocumentChunks:  2,
		MaxDocuments:       5,
		Normalization:      domain.NormalizationSqrt,
	}, log)

	return &pipelineFixture{pipeline: pipeline, encoder: encoder, store: store, blobs: blobs, llm: llm}
}

func TestPipeline_AnswersFromRetrievedContext(t *testing.T) {
	f := newPipelineFixture()

	f.encoder.On("Embed", mock.Anything, "dosage?").Return([]float32{0.1}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionText, mock.Anything, 100, 5, "").Return([]domain.SearchHit{
		{Text: "500mg twice daily", DocumentID: "doc-1", Page: 2, Score: 0.9},
	}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionImage, mock.Anything, 100, 5, "").Return([]domain.SearchHit{}, nil)
	f.blobs.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrObjectNotFound)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("<think>checking</think>The dosage is 500mg twice daily.", nil)

	result, err := f.pipeline.Run(context.Background(), "dosage?", "", 0)
	require.NoError(t, err)

	assert.Equal(t, "The dosage is 500mg twice daily.", result.Answer)
	require.Len(t, result.ContextUsed, 1)
	assert.Equal(t, "500mg twice daily", result.ContextUsed[0].Text)
	f.llm.AssertNumberOfCalls(t, "Complete", 1)
}

func TestPipeline_EmptyRetrievalTriggersFallbackThenFixedAnswer(t *testing.T) {
	f := newPipelineFixture()

	f.encoder.On("Embed", mock.Anything, "unknown topic").Return([]float32{0.1}, nil)
	f.store.On("Search", mock.Anything, mock.Anything, mock.Anything, 100, 5, "").Return([]domain.SearchHit{}, nil)
	f.store.On("Search", mock.Anything, mock.Anything, mock.Anything, 100, 2, "").Return([]domain.SearchHit{}, nil)

	result, err := f.pipeline.Run(context.Background(), "unknown topic", "", 0)
	require.NoError(t, err)

	assert.Equal(t, "No relevant information found.", result.Answer)
	assert.Empty(t, result.ContextUsed)
	f.llm.AssertNumberOfCalls(t, "Complete", 0)
	// fallback ran: two searches per collection
	f.store.AssertNumberOfCalls(t, "Search", 4)
}

func TestPipeline_FallbackRescuesWeakMatches(t *testing.T) {
	f := newPipelineFixture()

	f.encoder.On("Embed", mock.Anything, "rare condition").Return([]float32{0.1}, nil)
	f.store.On("Search", mock.Anything, mock.Anything, mock.Anything, 100, 5, "").Return([]domain.SearchHit{
		{Text: "below threshold", DocumentID: "doc-1", Page: 1, Score: 0.5},
	}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionText, mock.Anything, 100, 2, "").Return([]domain.SearchHit{
		{Text: "below threshold", DocumentID: "doc-1", Page: 1, Score: 0.5},
	}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionImage, mock.Anything, 100, 2, "").Return([]domain.SearchHit{}, nil)
	f.blobs.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrObjectNotFound)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("Best-effort answer.", nil)

	result, err := f.pipeline.Run(context.Background(), "rare condition", "", 0)
	require.NoError(t, err)

	assert.Equal(t, "Best-effort answer.", result.Answer)
	f.llm.AssertNumberOfCalls(t, "Complete", 1)
}

func TestPipeline_EmptyContextWindowSkipsGeneration(t *testing.T) {
	f := newPipelineFixture()

	f.encoder.On("Embed", mock.Anything, "query").Return([]float32{0.1}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionText, mock.Anything, 100, 5, "").Return([]domain.SearchHit{
		{Text: "", DocumentID: "doc-1", Page: 1, Score: 0.9},
		{Text: "  ", DocumentID: "doc-1", Page: 2, Score: 0.85},
	}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionImage, mock.Anything, 100, 5, "").Return([]domain.SearchHit{}, nil)
	f.blobs.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrObjectNotFound)

	result, err := f.pipeline.Run(context.Background(), "query", "", 0)
	require.NoError(t, err)

	assert.Equal(t, "No relevant information with content was found.", result.Answer)
	f.llm.AssertNumberOfCalls(t, "Complete", 0)
}

func TestPipeline_DocumentKeyScopesTheSearch(t *testing.T) {
	f := newPipelineFixture()

	f.encoder.On("Embed", mock.Anything, "dosage?").Return([]float32{0.1}, nil)
	f.store.On("Search", mock.Anything, mock.Anything, mock.Anything, 100, 5, "report").Return([]domain.SearchHit{
		{Text: "content", DocumentID: "report", Page: 1, Score: 0.9},
	}, nil)
	f.blobs.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrObjectNotFound)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("answer", nil)

	_, err := f.pipeline.Run(context.Background(), "dosage?", "report.pdf", 0)
	require.NoError(t, err)

	f.store.AssertCalled(t, "Search", mock.Anything, domain.CollectionText, mock.Anything, 100, 5, "report")
}

func TestPipeline_FallbackSearchesTheWholeCorpus(t *testing.T) {
	f := newPipelineFixture()

	f.encoder.On("Embed", mock.Anything, "dosage?").Return([]float32{0.1}, nil)
	// the scoped document has no matches at all
	f.store.On("Search", mock.Anything, mock.Anything, mock.Anything, 100, 5, "report").Return([]domain.SearchHit{}, nil)
	// but the corpus does, and the fallback must find it
	f.store.On("Search", mock.Anything, domain.CollectionText, mock.Anything, 100, 2, "").Return([]domain.SearchHit{
		{Text: "another document covers this", DocumentID: "other-doc", Page: 1, Score: 0.5},
	}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionImage, mock.Anything, 100, 2, "").Return([]domain.SearchHit{}, nil)
	f.blobs.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrObjectNotFound)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("Best-effort answer.", nil)

	result, err := f.pipeline.Run(context.Background(), "dosage?", "report.pdf", 0)
	require.NoError(t, err)

	assert.Equal(t, "Best-effort answer.", result.Answer)
	require.Len(t, result.ContextUsed, 1)
	assert.Equal(t, "other-doc", result.ContextUsed[0].DocumentID)
	f.llm.AssertNumberOfCalls(t, "Complete", 1)
}

func TestPipeline_GenerateDirectUsesEmptyContext(t *testing.T) {
	f := newPipelineFixture()

	f.llm.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "use your general medical knowledge to respond") &&
			!strings.Contains(prompt, "Source:")
	})).Return("Hello! How can I help?", nil)

	answer, err := f.pipeline.GenerateDirect(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "Hello! How can I help?", answer)
	f.encoder.AssertNumberOfCalls(t, "Embed", 0)
	f.store.AssertNumberOfCalls(t, "Search", 0)
}

func TestAskWithAutoSelection_NoDocuments(t *testing.T) {
	f := newPipelineFixture()

	f.encoder.On("Embed", mock.Anything, "query").Return([]float32{0.1}, nil)
	f.store.On("Search", mock.Anything, mock.Anything, mock.Anything, 20, 10, "").Return([]domain.SearchHit{}, nil)

	resp, err := f.pipeline.AskWithAutoSelection(context.Background(), "query")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusNoDocumentsFound, resp.Status)
	assert.Equal(t, "No relevant documents found in the knowledge base.", resp.Answer)
	f.llm.AssertNumberOfCalls(t, "Complete", 0)
}

func TestAskWithAutoSelection_AnswersAgainstTopDocument(t *testing.T) {
	f := newPipelineFixture()

	f.encoder.On("Embed", mock.Anything, "treatment?").Return([]float32{0.1}, nil)
	// ranking survey
	f.store.On("Search", mock.Anything, domain.CollectionText, mock.Anything, 20, 10, "").Return([]domain.SearchHit{
		{Text: "a", DocumentID: "doc-x", Page: 1, Score: 0.9},
		{Text: "b", DocumentID: "doc-x", Page: 2, Score: 0.8},
	}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionImage, mock.Anything, 20, 10, "").Return([]domain.SearchHit{}, nil)
	// scoped retrieval for the answer
	f.store.On("Search", mock.Anything, domain.CollectionText, mock.Anything, 100, 5, "doc-x").Return([]domain.SearchHit{
		{Text: "treatment detail", DocumentID: "doc-x", Page: 1, Score: 0.9},
	}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionImage, mock.Anything, 100, 5, "doc-x").Return([]domain.SearchHit{}, nil)
	f.blobs.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrObjectNotFound)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("Treatment answer.", nil)

	resp, err := f.pipeline.AskWithAutoSelection(context.Background(), "treatment?")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, resp.Status)
	assert.Equal(t, "doc-x", resp.SelectedDocument)
	assert.InDelta(t, 1.202, resp.SelectionScore, 1e-3)
	assert.Equal(t, "Treatment answer.", resp.Answer)
	assert.Equal(t, 1, resp.DocumentsConsidered)
}

func TestAskWithAutoSelection_GenerationFailureIsAnOutcome(t *testing.T) {
	f := newPipelineFixture()

	f.encoder.On("Embed", mock.Anything, "query").Return([]float32{0.1}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionText, mock.Anything, 20, 10, "").Return([]domain.SearchHit{
		{Text: "a", DocumentID: "doc-x", Page: 1, Score: 0.9},
		{Text: "b", DocumentID: "doc-x", Page: 2, Score: 0.8},
	}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionImage, mock.Anything, 20, 10, "").Return([]domain.SearchHit{}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionText, mock.Anything, 100, 5, "doc-x").Return([]domain.SearchHit{
		{Text: "content", DocumentID: "doc-x", Page: 1, Score: 0.9},
	}, nil)
	f.store.On("Search", mock.Anything, domain.CollectionImage, mock.Anything, 100, 5, "doc-x").Return([]domain.SearchHit{}, nil)
	f.blobs.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrObjectNotFound)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model offline"))

	resp, err := f.pipeline.AskWithAutoSelection(context.Background(), "query")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusGenerationFailed, resp.Status)
	assert.Equal(t, "doc-x", resp.SelectedDocument)
	assert.Contains(t, resp.Answer, "Document selected successfully but failed to generate answer")
	assert.Contains(t, resp.Answer, "model offline")
}
