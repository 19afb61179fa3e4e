package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"medrag/internal/domain"
)

// upstream inference APIs throttle aggressively; keep a local ceiling
const embedRequestsPerSecond = 5

// RetryPolicy describes the fixed-delay retry budget for embedding calls.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Clock abstracts the inter-attempt delay so tests run without real time.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// HFEmbedder calls a HuggingFace-style feature-extraction endpoint.
type HFEmbedder struct {
	BaseURL string
	Model   string
	Token   string
	Client  *http.Client

	policy  RetryPolicy
	clock   Clock
	limiter *rate.Limiter
	log     *slog.Logger
}

// Option customizes an HFEmbedder.
type Option func(*HFEmbedder)

// WithClock replaces the real clock, used by tests to skip retry delays.
func WithClock(c Clock) Option {
	return func(e *HFEmbedder) {
		e.clock = c
	}
}

// NewHFEmbedder constructs an embedder with the given retry policy.
func NewHFEmbedder(baseURL, model, token string, policy RetryPolicy, client *http.Client, log *slog.Logger, opts ...Option) *HFEmbedder {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	e := &HFEmbedder{
		BaseURL: baseURL,
		Model:   model,
		Token:   token,
		Client:  client,
		policy:  policy,
		clock:   realClock{},
		limiter: rate.NewLimiter(rate.Limit(embedRequestsPerSecond), 1),
		log:     log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type embedRequest struct {
	Inputs string `json:"inputs"`
}

// Embed converts text to a vector, retrying transient failures with a
// fixed delay. Exhausting the budget returns ErrEmbeddingUnavailable.
func (e *HFEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		vector, err := e.embedOnce(ctx, text)
		if err == nil {
			return vector, nil
		}
		lastErr = err
		e.log.Warn("embedding fetch failed",
			slog.Int("attempt", attempt),
			slog.String("model", e.Model),
			slog.String("error", err.Error()),
		)

		if attempt < e.policy.MaxAttempts {
			if err := e.clock.Sleep(ctx, e.policy.Delay); err != nil {
				return nil, fmt.Errorf("retry wait: %w", err)
			}
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", domain.ErrEmbeddingUnavailable, e.policy.MaxAttempts, lastErr)
}

func (e *HFEmbedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", e.BaseURL, e.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.Token)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	return decodeVector(resp.Body)
}

// decodeVector accepts both response shapes the endpoint produces: a
// bare vector, or a one-element batch of vectors.
func decodeVector(r io.Reader) ([]float32, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var vector []float32
	if err := json.Unmarshal(raw, &vector); err == nil {
		return vector, nil
	}

	var batch [][]float32
	if err := json.Unmarshal(raw, &batch); err != nil || len(batch) == 0 {
		return nil, fmt.Errorf("unexpected embedding response shape")
	}
	return batch[0], nil
}

// Version reports the model identifier behind this encoder.
func (e *HFEmbedder) Version() string {
	return e.Model
}

var _ domain.VectorEncoder = (*HFEmbedder)(nil)
