package rag_http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"medrag/internal/domain"
)

// QueryPipeline is the usecase surface the HTTP layer depends on.
type QueryPipeline interface {
	Run(ctx context.Context, question, documentKey string, topK int) (*domain.AnswerResult, error)
	AskWithAutoSelection(ctx context.Context, question string) (*domain.AutoQueryResponse, error)
	MostRelevantDocuments(ctx context.Context, question string, topN int, showPreviews bool) (*domain.QueryToDocResponse, error)
	RetrieveContext(ctx context.Context, question string, topK int, documentKey string) (*domain.RetrievalResult, error)
	GenerateDirect(ctx context.Context, question string) (string, error)
}

type Handler struct {
	pipeline QueryPipeline
	log      *slog.Logger
}

func NewHandler(pipeline QueryPipeline, log *slog.Logger) *Handler {
	return &Handler{pipeline: pipeline, log: log}
}

// RegisterRoutes mounts the query surface on the router.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.POST("/v1/rag/query", h.Query)
	e.POST("/v1/rag/auto", h.AutoQuery)
	e.POST("/v1/rag/documents", h.RankDocuments)
	e.POST("/v1/rag/retrieve", h.Retrieve)
}

type queryRequest struct {
	Question    string `json:"question"`
	DocumentKey string `json:"document_key,omitempty"`
	TopK        int    `json:"top_k,omitempty"`
}

type queryResponse struct {
	RequestID   string                `json:"request_id"`
	Answer      string                `json:"answer"`
	ContextUsed []domain.ContextChunk `json:"context_used"`
	Intent      string                `json:"intent"`
}

// Query answers a question. Conversational questions that need no
// document context go straight to the generator; everything else runs
// the retrieval pipeline.
// (POST /v1/rag/query)
func (h *Handler) Query(ctx echo.Context) error {
	var req queryRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Question) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "question is required"})
	}

	requestID := uuid.New().String()
	intent := domain.ClassifyIntent(req.Question)
	h.log.Info("query received",
		slog.String("request_id", requestID),
		slog.String("intent", string(intent)),
		slog.String("document_key", req.DocumentKey),
	)

	if intent == domain.IntentDirect {
		answer, err := h.pipeline.GenerateDirect(ctx.Request().Context(), req.Question)
		if err != nil {
			return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return ctx.JSON(http.StatusOK, queryResponse{
			RequestID:   requestID,
			Answer:      answer,
			ContextUsed: []domain.ContextChunk{},
			Intent:      string(intent),
		})
	}

	result, err := h.pipeline.Run(ctx.Request().Context(), req.Question, req.DocumentKey, req.TopK)
	if err != nil {
		h.log.Error("query failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, queryResponse{
		RequestID:   requestID,
		Answer:      result.Answer,
		ContextUsed: result.ContextUsed,
		Intent:      string(intent),
	})
}

type autoQueryRequest struct {
	Question string `json:"question"`
}

// AutoQuery selects the most relevant document and answers against it.
// (POST /v1/rag/auto)
func (h *Handler) AutoQuery(ctx echo.Context) error {
	var req autoQueryRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Question) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "question is required"})
	}

	resp, err := h.pipeline.AskWithAutoSelection(ctx.Request().Context(), req.Question)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, resp)
}

type rankRequest struct {
	Question     string `json:"question"`
	TopN         int    `json:"top_n,omitempty"`
	ShowPreviews bool   `json:"show_previews,omitempty"`
}

// RankDocuments lists the documents most relevant to a question.
// (POST /v1/rag/documents)
func (h *Handler) RankDocuments(ctx echo.Context) error {
	var req rankRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Question) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "question is required"})
	}

	resp, err := h.pipeline.MostRelevantDocuments(ctx.Request().Context(), req.Question, req.TopN, req.ShowPreviews)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownNormalization) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, resp)
}

type retrieveRequest struct {
	Question    string `json:"question"`
	DocumentKey string `json:"document_key,omitempty"`
	TopK        int    `json:"top_k,omitempty"`
}

type retrieveResponse struct {
	RetrievalSetID string                  `json:"retrieval_set_id"`
	Result         *domain.RetrievalResult `json:"result"`
}

// Retrieve runs the retrieval stage without generation.
// (POST /v1/rag/retrieve)
func (h *Handler) Retrieve(ctx echo.Context) error {
	var req retrieveRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Question) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "question is required"})
	}

	result, err := h.pipeline.RetrieveContext(ctx.Request().Context(), req.Question, req.TopK, req.DocumentKey)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, retrieveResponse{
		RetrievalSetID: uuid.New().String(),
		Result:         result,
	})
}
