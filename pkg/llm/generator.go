// Package llm defines the chat-completion abstraction the query engine uses
// to turn retrieved context into an answer.
package llm

import "context"

// Generator produces one assistant reply for an ordered list of messages.
type Generator interface {
	// Generate returns the text of the assistant reply.
	Generate(ctx context.Context, messages []Message) (string, error)

	// Model returns the name of the model replies come from.
	Model() string

	// Close releases any resources held by the generator.
	Close() error
}
