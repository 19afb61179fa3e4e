package domain

import "context"

// LLMClient sends a fully assembled prompt to the generative model and
// returns the raw completion text.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Version() string
}
