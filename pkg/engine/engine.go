// Package engine answers questions from the private document set: it builds
// the vector index once, then for every question embeds it, retrieves the
// closest documents and asks the chat model to answer from them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/papercomputeco/crmchat/pkg/embeddings"
	"github.com/papercomputeco/crmchat/pkg/eventstream"
	"github.com/papercomputeco/crmchat/pkg/llm"
	"github.com/papercomputeco/crmchat/pkg/memory"
	"github.com/papercomputeco/crmchat/pkg/telemetry"
	"github.com/papercomputeco/crmchat/pkg/utils"
)

// Options configures New.
type Options struct {
	Builder *Builder

	// QueryEmbedder embeds questions. It defaults to the builder's embedder
	// and must report the same model.
	QueryEmbedder embeddings.Embedder

	Generator llm.Generator

	// Memory, when set, records every answered turn and injects the
	// conversation's history into the prompt.
	Memory memory.Driver

	// Publisher receives index and query events. Failures are logged only.
	Publisher eventstream.Publisher

	TopK         int
	SystemPrompt string
	Logger       *slog.Logger
}

// Request is one question, optionally part of a conversation.
type Request struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Answer is the generator's raw reply and the fragments it was given.
type Answer struct {
	Text      string     `json:"answer"`
	Fragments []Fragment `json:"fragments,omitempty"`
}

// Engine is safe for concurrent use; everything but the memory driver is
// read-only after New returns.
type Engine struct {
	index     *Index
	retriever *Retriever
	embedder  embeddings.Embedder
	generator llm.Generator
	memory    memory.Driver
	publisher eventstream.Publisher
	prompt    string
	stats     Stats
	logger    *slog.Logger
}

// New validates opts and runs the index build. It returns only once the
// index is complete.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Builder == nil {
		return nil, errors.New("engine: builder is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("engine: generator is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	queryEmbedder := opts.QueryEmbedder
	if queryEmbedder == nil {
		queryEmbedder = opts.Builder.Embedder
	}
	if got, want := queryEmbedder.Model(), opts.Builder.Embedder.Model(); got != want {
		return nil, fmt.Errorf("%w: questions use %q, documents use %q", ErrModelMismatch, got, want)
	}

	prompt := opts.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}

	idx, stats, err := opts.Builder.Build(ctx)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		index:     idx,
		retriever: NewRetriever(idx, opts.TopK),
		embedder:  queryEmbedder,
		generator: opts.Generator,
		memory:    opts.Memory,
		publisher: opts.Publisher,
		prompt:    prompt,
		stats:     stats,
		logger:    logger,
	}

	if e.publisher != nil {
		event := eventstream.NewIndexBuiltEvent()
		event.Documents = stats.Documents
		event.Reused = stats.Reused
		event.Updated = stats.Updated
		event.Dropped = stats.Dropped
		event.Models = eventstream.ModelMeta{Embedding: idx.Model, Chat: e.generator.Model()}
		event.DurationMs = stats.Duration.Milliseconds()
		if err := e.publisher.PublishIndexBuilt(ctx, event); err != nil {
			logger.Warn("publishing index event failed", "error", err)
		}
	}

	return e, nil
}

// Query answers a stateless question and returns the generator's reply
// verbatim.
func (e *Engine) Query(ctx context.Context, question string) (string, error) {
	a, err := e.Ask(ctx, Request{Question: question})
	if err != nil {
		return "", err
	}
	return a.Text, nil
}

// Ask answers req. Provider failures are returned wrapped in
// embeddings.ErrEmbedding or llm.ErrGeneration; nothing partial is returned.
func (e *Engine) Ask(ctx context.Context, req Request) (answer *Answer, err error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	start := time.Now()
	ctx, span := telemetry.Start(ctx, telemetry.SpanQuery,
		attribute.Bool("query.conversation", req.ConversationID != ""),
	)
	defer func() { telemetry.End(span, err) }()

	qvec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: question: %w", embeddings.ErrEmbedding, err)
	}

	frags, err := e.retriever.Retrieve(ctx, qvec)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(frags))
	for i, f := range frags {
		texts[i] = f.Text
	}

	messages := []llm.Message{llm.System(e.prompt)}
	messages = append(messages, e.history(ctx, req.ConversationID)...)
	messages = append(messages, llm.User(UserMessage(strings.Join(texts, " "), question)))

	genCtx, genSpan := telemetry.Start(ctx, telemetry.SpanGenerate, attribute.String("llm.model", e.generator.Model()))
	reply, err := e.generator.Generate(genCtx, messages)
	telemetry.End(genSpan, err)
	if err != nil {
		if !errors.Is(err, llm.ErrGeneration) {
			err = fmt.Errorf("%w: %w", llm.ErrGeneration, err)
		}
		return nil, err
	}

	if e.memory != nil && req.ConversationID != "" {
		turn := memory.Turn{Question: question, Answer: reply}
		if err := e.memory.Store(ctx, req.ConversationID, turn); err != nil {
			e.logger.Warn("storing conversation turn failed", "conversation_id", req.ConversationID, "error", err)
		}
	}

	e.publishAnswer(ctx, req.ConversationID, question, reply, frags, time.Since(start))

	e.logger.Debug("question answered",
		"question", utils.Truncate(question, 80),
		"fragments", len(frags),
		"conversation_id", req.ConversationID,
		"duration", time.Since(start),
	)

	return &Answer{Text: reply, Fragments: frags}, nil
}

// history returns the recalled turns of a conversation. A recall failure
// degrades to a stateless answer.
func (e *Engine) history(ctx context.Context, conversationID string) []llm.Message {
	if e.memory == nil || conversationID == "" {
		return nil
	}
	msgs, err := e.memory.Recall(ctx, conversationID)
	if err != nil {
		e.logger.Warn("recalling conversation failed", "conversation_id", conversationID, "error", err)
		return nil
	}
	return msgs
}

func (e *Engine) publishAnswer(ctx context.Context, conversationID, question, reply string, frags []Fragment, took time.Duration) {
	if e.publisher == nil {
		return
	}

	event := eventstream.NewQueryAnsweredEvent()
	event.ConversationID = conversationID
	event.Question = question
	event.Answer = reply
	event.Models = eventstream.ModelMeta{Embedding: e.index.Model, Chat: e.generator.Model()}
	event.DurationMs = took.Milliseconds()
	event.Fragments = make([]eventstream.FragmentRef, len(frags))
	for i, f := range frags {
		event.Fragments[i] = eventstream.FragmentRef{DocumentID: f.DocumentID, Score: f.Score}
	}

	if err := e.publisher.PublishQueryAnswered(ctx, event); err != nil {
		e.logger.Warn("publishing query event failed", "error", err)
	}
}

// Stats returns the statistics of the startup build.
func (e *Engine) Stats() Stats {
	return e.stats
}

// EmbeddingModel returns the model documents and questions are embedded with.
func (e *Engine) EmbeddingModel() string {
	return e.index.Model
}

// ChatModel returns the model answers come from.
func (e *Engine) ChatModel() string {
	return e.generator.Model()
}

// TopK returns the number of fragments retrieved per question.
func (e *Engine) TopK() int {
	return e.retriever.TopK()
}

// Close releases the vector index. Providers are owned by the caller.
func (e *Engine) Close() error {
	return e.index.Close()
}
