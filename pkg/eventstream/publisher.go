package eventstream

import "context"

// Publisher publishes chatbot events to an event stream backend.
type Publisher interface {
	PublishQueryAnswered(ctx context.Context, event *QueryAnsweredEvent) error
	PublishIndexBuilt(ctx context.Context, event *IndexBuiltEvent) error
	Close() error
}
