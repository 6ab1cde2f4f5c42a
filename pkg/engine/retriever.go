package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/papercomputeco/crmchat/pkg/telemetry"
)

// DefaultTopK is the number of fragments retrieved per question.
const DefaultTopK = 2

// Fragment is one retrieved document.
type Fragment struct {
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

// Retriever ranks the indexed documents against a query embedding.
type Retriever struct {
	index *Index
	topK  int
}

// NewRetriever returns a retriever over idx. A non-positive topK uses
// DefaultTopK.
func NewRetriever(idx *Index, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{index: idx, topK: topK}
}

// TopK returns the retrieval bound.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns at most TopK fragments, most similar first. An empty
// index yields no fragments and no error.
func (r *Retriever) Retrieve(ctx context.Context, embedding []float32) (frags []Fragment, err error) {
	ctx, span := telemetry.Start(ctx, telemetry.SpanRetrieve, attribute.Int("retrieve.top_k", r.topK))
	defer func() { telemetry.End(span, err) }()

	if r.index.Len() == 0 {
		return nil, nil
	}

	results, err := r.index.Driver.Query(ctx, embedding, r.topK)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	frags = make([]Fragment, 0, len(results))
	for _, res := range results {
		text, ok := r.index.Text(res.ID)
		if !ok {
			continue
		}
		frags = append(frags, Fragment{DocumentID: res.ID, Text: text, Score: res.Score})
	}

	span.SetAttributes(attribute.Int("retrieve.fragments", len(frags)))
	return frags, nil
}
