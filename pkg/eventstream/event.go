package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeQueryAnswered is emitted after a question has been answered.
	EventTypeQueryAnswered = "crmchat.query.answered"

	// EventTypeIndexBuilt is emitted after the startup index build.
	EventTypeIndexBuilt = "crmchat.index.built"
)

// Envelope holds the fields shared by every event.
type Envelope struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
}

func newEnvelope(eventType string) Envelope {
	return Envelope{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
	}
}

// QueryAnsweredEvent is a transport-neutral payload for an answered question.
type QueryAnsweredEvent struct {
	Envelope

	ConversationID string        `json:"conversation_id,omitempty"`
	Question       string        `json:"question"`
	Answer         string        `json:"answer"`
	Fragments      []FragmentRef `json:"fragments"`
	Models         ModelMeta     `json:"models"`
	DurationMs     int64         `json:"duration_ms"`
}

// FragmentRef identifies a retrieved document without its text.
type FragmentRef struct {
	DocumentID string  `json:"document_id"`
	Score      float32 `json:"score"`
}

// ModelMeta names the models involved.
type ModelMeta struct {
	Embedding string `json:"embedding"`
	Chat      string `json:"chat,omitempty"`
}

// NewQueryAnsweredEvent stamps a fresh envelope.
func NewQueryAnsweredEvent() *QueryAnsweredEvent {
	return &QueryAnsweredEvent{Envelope: newEnvelope(EventTypeQueryAnswered)}
}

// IndexBuiltEvent summarises a completed index build.
type IndexBuiltEvent struct {
	Envelope

	Documents  int       `json:"documents"`
	Reused     int       `json:"reused"`
	Updated    int       `json:"updated"`
	Dropped    int       `json:"dropped"`
	Models     ModelMeta `json:"models"`
	DurationMs int64     `json:"duration_ms"`
}

// NewIndexBuiltEvent stamps a fresh envelope.
func NewIndexBuiltEvent() *IndexBuiltEvent {
	return &IndexBuiltEvent{Envelope: newEnvelope(EventTypeIndexBuilt)}
}
