// Package local provides an in-memory implementation of the memory.Driver
// interface. History lives only as long as the process.
package local

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/papercomputeco/crmchat/pkg/llm"
	"github.com/papercomputeco/crmchat/pkg/memory"
)

// Config holds configuration for the local memory driver.
type Config struct {
	// Enabled controls whether the driver stores and recalls turns.
	// When false, Store is a no-op and Recall returns nil.
	Enabled bool

	// TokenLimit is the per-conversation budget. Zero uses
	// memory.DefaultTokenLimit.
	TokenLimit int

	// MaxConversations caps how many conversations are retained. Storing a
	// turn for a new conversation past the cap evicts the least recently
	// used one. Zero uses DefaultMaxConversations.
	MaxConversations int
}

// DefaultMaxConversations is used when Config.MaxConversations is zero.
const DefaultMaxConversations = 1000

// Driver implements memory.Driver using in-process data structures.
type Driver struct {
	config Config

	// mu guards the buffers; the cache has its own lock for recency.
	mu sync.RWMutex

	// conversations maps conversation ID -> its token window.
	conversations *lru.Cache[string, *memory.Buffer]
}

// NewDriver creates a local in-memory memory driver.
func NewDriver(config Config) *Driver {
	if config.MaxConversations <= 0 {
		config.MaxConversations = DefaultMaxConversations
	}

	conversations, err := lru.New[string, *memory.Buffer](config.MaxConversations)
	if err != nil {
		// lru.New only fails on a non-positive size
		panic(fmt.Sprintf("local memory: %v", err))
	}

	return &Driver{
		config:        config,
		conversations: conversations,
	}
}

// Store appends a turn to the conversation. An empty conversation ID marks a
// stateless request and is ignored.
func (d *Driver) Store(_ context.Context, conversationID string, turn memory.Turn) error {
	if !d.config.Enabled || conversationID == "" {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.conversations.Get(conversationID)
	if !ok {
		buf = memory.NewBuffer(d.config.TokenLimit)
		d.conversations.Add(conversationID, buf)
	}
	buf.Append(turn)

	return nil
}

// Recall returns the retained turns of the conversation. The returned slice
// is owned by the caller.
func (d *Driver) Recall(_ context.Context, conversationID string) ([]llm.Message, error) {
	if !d.config.Enabled || conversationID == "" {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	buf, ok := d.conversations.Get(conversationID)
	if !ok {
		return nil, nil
	}
	return buf.Messages(), nil
}

// Conversations returns the number of tracked conversations.
func (d *Driver) Conversations() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.conversations.Len()
}

// Close drops every retained conversation.
func (d *Driver) Close() error {
	d.conversations.Purge()
	return nil
}

var _ memory.Driver = (*Driver)(nil)
