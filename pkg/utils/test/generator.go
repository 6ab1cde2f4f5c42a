package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/crmchat/pkg/llm"
)

// MockGenerator records every conversation it is asked to complete.
type MockGenerator struct {
	// Reply is returned by Generate. Defaults to "<response>ok</response>".
	Reply string

	// Err, when set, is returned instead of a reply.
	Err error

	mu       sync.Mutex
	requests [][]llm.Message
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{Reply: "<response>ok</response>"}
}

func (m *MockGenerator) Generate(_ context.Context, messages []llm.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, append([]llm.Message(nil), messages...))
	if m.Err != nil {
		return "", errors.Join(llm.ErrGeneration, m.Err)
	}
	return m.Reply, nil
}

func (m *MockGenerator) Model() string { return "mock-chat" }

func (m *MockGenerator) Close() error { return nil }

// Requests returns the recorded conversations.
func (m *MockGenerator) Requests() [][]llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

// Last returns the most recent conversation, or nil.
func (m *MockGenerator) Last() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}
