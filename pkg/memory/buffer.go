package memory

import (
	"unicode/utf8"

	"github.com/papercomputeco/crmchat/pkg/llm"
)

// DefaultTokenLimit is the per-conversation budget.
const DefaultTokenLimit = 15000

// EstimateTokens approximates the token count of s as one token per four
// characters, rounded up.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// Buffer is a token-bounded window over the turns of one conversation. It is
// not safe for concurrent use.
type Buffer struct {
	limit  int
	turns  []Turn
	tokens int
}

// NewBuffer creates an empty buffer. A non-positive limit uses
// DefaultTokenLimit.
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultTokenLimit
	}
	return &Buffer{limit: limit}
}

// Append adds a turn and evicts the oldest turns until the buffer fits the
// budget again. The newest turn is always kept, even when it alone exceeds
// the budget.
func (b *Buffer) Append(t Turn) {
	b.turns = append(b.turns, t)
	b.tokens += t.Tokens()

	for b.tokens > b.limit && len(b.turns) > 1 {
		b.tokens -= b.turns[0].Tokens()
		b.turns = b.turns[1:]
	}
}

// Messages returns the retained turns as chat messages, oldest first.
func (b *Buffer) Messages() []llm.Message {
	out := make([]llm.Message, 0, 2*len(b.turns))
	for _, t := range b.turns {
		out = append(out, t.Messages()...)
	}
	return out
}

// Len returns the number of retained turns.
func (b *Buffer) Len() int { return len(b.turns) }

// Tokens returns the estimated size of the retained turns.
func (b *Buffer) Tokens() int { return b.tokens }
