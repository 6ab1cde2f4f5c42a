package testutils

import (
	"context"
	"errors"

	"github.com/papercomputeco/crmchat/pkg/llm"
	"github.com/papercomputeco/crmchat/pkg/memory"
)

// MockMemoryDriver is a test memory driver that records calls and returns
// configurable results.
type MockMemoryDriver struct {
	// Stored accumulates all turns passed to Store, by conversation.
	Stored map[string][]memory.Turn

	// RecallResults is returned by Recall for any conversation.
	RecallResults []llm.Message

	// FailStore causes Store to return an error.
	FailStore bool

	// FailRecall causes Recall to return an error.
	FailRecall bool
}

// NewMockMemoryDriver creates a new mock memory driver.
func NewMockMemoryDriver() *MockMemoryDriver {
	return &MockMemoryDriver{Stored: make(map[string][]memory.Turn)}
}

func (m *MockMemoryDriver) Store(_ context.Context, conversationID string, turn memory.Turn) error {
	if m.FailStore {
		return errors.New("mock store failure")
	}
	m.Stored[conversationID] = append(m.Stored[conversationID], turn)
	return nil
}

func (m *MockMemoryDriver) Recall(_ context.Context, _ string) ([]llm.Message, error) {
	if m.FailRecall {
		return nil, errors.New("mock recall failure")
	}
	return m.RecallResults, nil
}

func (m *MockMemoryDriver) Close() error {
	return nil
}
