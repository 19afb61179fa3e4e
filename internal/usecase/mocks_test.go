package usecase_test

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"medrag/internal/domain"
)

type mockEncoder struct {
	mock.Mock
}

func (m *mockEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEncoder) Version() string {
	return "test-encoder"
}

type mockVectorStore struct {
	mock.Mock
}

func (m *mockVectorStore) Search(ctx context.Context, collection domain.Collection, vector []float32, numCandidates, limit int, documentID string) ([]domain.SearchHit, error) {
	args := m.Called(ctx, collection, vector, numCandidates, limit, documentID)
	if v := args.Get(0); v != nil {
		return v.([]domain.SearchHit), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockLLM) Version() string {
	return "test-llm"
}

// memCache is an in-memory stand-in for the external cache.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	return data, ok
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.sets++
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
