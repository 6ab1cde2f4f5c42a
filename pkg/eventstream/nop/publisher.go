package nop

import (
	"context"

	"github.com/papercomputeco/crmchat/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishQueryAnswered validates input and otherwise does nothing.
func (p *Publisher) PublishQueryAnswered(_ context.Context, event *eventstream.QueryAnsweredEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return nil
}

// PublishIndexBuilt validates input and otherwise does nothing.
func (p *Publisher) PublishIndexBuilt(_ context.Context, event *eventstream.IndexBuiltEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
