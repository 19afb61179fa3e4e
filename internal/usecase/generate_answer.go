package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"medrag/internal/domain"
)

const answerPromptTemplate = `You are a clinically informed medical AI assistant. Your task is to answer questions based on the provided context, which may include text, tables, and image captions from medical documents.

------------------ BEGIN CONTEXT ------------------
%s
------------------- END CONTEXT -------------------

QUESTION: %s

INSTRUCTIONS:
1. Analyze the question and the provided context carefully.
2. If the question contains conversation history or previous context, only use it if the current question directly relates to previous topics (contains pronouns like "it", "this", "that", follow-up words like "also", "additionally", or explicitly references earlier topics).
3. If the context contains the answer, synthesize the information and provide a clear, concise answer.
4. If the context does not contain the answer, use your general medical knowledge to respond.
5. Focus primarily on answering the current question - don't unnecessarily reference previous conversation unless it's directly relevant.
6. **Your final response should be direct and to the point. Do not include your reasoning, thought process, or self-reflection in the answer.**
7. Format your answer using Markdown for clarity (e.g., headings, lists, bold text).`

// thinkPattern matches reasoning blocks some models emit before the
// final answer, including multi-line bodies.
var thinkPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ResponseGenerator turns assembled context and a question into a
// cleaned model answer.
type ResponseGenerator struct {
	llm domain.LLMClient
	log *slog.Logger
}

// NewResponseGenerator wires the generation stage.
func NewResponseGenerator(llm domain.LLMClient, log *slog.Logger) *ResponseGenerator {
	return &ResponseGenerator{llm: llm, log: log}
}

// Generate calls the model exactly once and returns the cleaned answer.
func (g *ResponseGenerator) Generate(ctx context.Context, question, contextBlock string) (string, error) {
	prompt := fmt.Sprintf(answerPromptTemplate, contextBlock, question)

	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	answer := CleanResponse(raw)
	g.log.Debug("generated answer",
		slog.String("model", g.llm.Version()),
		slog.Int("raw_len", len(raw)),
		slog.Int("clean_len", len(answer)),
	)
	return answer, nil
}

// CleanResponse strips reasoning tags and surrounding whitespace from a
// raw model completion.
func CleanResponse(raw string) string {
	return strings.TrimSpace(thinkPattern.ReplaceAllString(raw, ""))
}
