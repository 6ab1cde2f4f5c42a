// Package memory keeps the recent turns of each conversation so follow-up
// questions can be answered in context.
//
// Memory is bounded by a token budget rather than a turn count: when a
// conversation grows past the budget its oldest turns are evicted first.
//
// Drivers are pluggable via configuration:
//
//	[memory]
//	enabled = true
//	token_limit = 15000
//	max_conversations = 1000
package memory

import (
	"context"

	"github.com/papercomputeco/crmchat/pkg/llm"
)

// Driver handles storage and recall of conversation memory.
type Driver interface {
	// Store appends a completed turn to the conversation's history.
	Store(ctx context.Context, conversationID string, turn Turn) error

	// Recall returns the retained history of a conversation as chat
	// messages, oldest first.
	Recall(ctx context.Context, conversationID string) ([]llm.Message, error)

	// Close releases driver resources.
	Close() error
}

// Turn is one answered question.
type Turn struct {
	Question string
	Answer   string
}

// Messages renders the turn as a user/assistant pair.
func (t Turn) Messages() []llm.Message {
	return []llm.Message{llm.User(t.Question), llm.Assistant(t.Answer)}
}

// Tokens estimates the prompt cost of the turn.
func (t Turn) Tokens() int {
	return EstimateTokens(t.Question) + EstimateTokens(t.Answer)
}
