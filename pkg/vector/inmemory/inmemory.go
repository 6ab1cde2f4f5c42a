// Package inmemory is the default vector driver: a flat slice scanned with
// cosine similarity. Document sets behind the chatbot are small enough that
// an exact scan beats maintaining an approximate index.
package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/papercomputeco/crmchat/pkg/vector"
)

// Driver implements vector.Driver in process memory.
type Driver struct {
	mu   sync.RWMutex
	dims int
	docs map[string]vector.Document
}

// NewDriver creates an empty index. dims fixes the embedding length; zero
// takes the length of the first document added.
func NewDriver(dims int) *Driver {
	return &Driver{
		dims: dims,
		docs: make(map[string]vector.Document),
	}
}

func (d *Driver) Add(_ context.Context, docs []vector.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, doc := range docs {
		if d.dims == 0 {
			d.dims = len(doc.Embedding)
		}
		if len(doc.Embedding) != d.dims {
			return fmt.Errorf("%w: document %s has %d dimensions, index has %d",
				vector.ErrDimensionMismatch, doc.ID, len(doc.Embedding), d.dims)
		}
		doc.Embedding = slices.Clone(doc.Embedding)
		d.docs[doc.ID] = doc
	}

	return nil
}

// Query ranks every document by cosine similarity. Ties are broken by ID so
// results are deterministic.
func (d *Driver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.docs) == 0 || topK <= 0 {
		return nil, nil
	}
	if len(embedding) != d.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			vector.ErrDimensionMismatch, len(embedding), d.dims)
	}

	results := make([]vector.QueryResult, 0, len(d.docs))
	for _, doc := range d.docs {
		results = append(results, vector.QueryResult{
			Document: doc,
			Score:    vector.Cosine(embedding, doc.Embedding),
		})
	}

	slices.SortFunc(results, func(a, b vector.QueryResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs), nil
}

func (d *Driver) Close() error {
	return nil
}

var _ vector.Driver = (*Driver)(nil)
