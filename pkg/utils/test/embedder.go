package testutils

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// MockEmbedder is a test embedder that returns predictable embeddings and
// counts how often each text was embedded.
type MockEmbedder struct {
	// Embeddings overrides the vector returned for a text.
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// ModelName is returned by Model. Defaults to "mock-embedding".
	ModelName string

	mu    sync.Mutex
	calls map[string]int
	total int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		calls:      make(map[string]int),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls[text]++
	m.total++
	m.mu.Unlock()

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// distinct texts get distinct, stable vectors
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	sum := h.Sum32()
	return []float32{
		float32(sum&0xff) + 1,
		float32((sum>>8)&0xff) + 1,
		float32((sum>>16)&0xff) + 1,
	}, nil
}

func (m *MockEmbedder) Model() string {
	if m.ModelName == "" {
		return "mock-embedding"
	}
	return m.ModelName
}

func (m *MockEmbedder) Close() error {
	return nil
}

// Calls returns the total number of Embed calls.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// CallsFor returns the number of Embed calls for text.
func (m *MockEmbedder) CallsFor(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[text]
}

// Reset clears the call counters.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
	m.total = 0
}
