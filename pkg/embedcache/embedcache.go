// Package embedcache persists document embeddings keyed by document ID so an
// index build only calls the embedding provider for new or changed documents.
//
// An entry is valid for a document exactly when its fingerprint equals the
// fingerprint of the document's current text and the snapshot was produced
// by the same embedding model.
package embedcache

import "context"

// Entry is the cached embedding of one document.
type Entry struct {
	Fingerprint string
	Embedding   []float32
}

// Snapshot is the full content of a cache: the model that produced the
// embeddings and the entries keyed by document ID.
type Snapshot struct {
	Model   string
	Entries map[string]Entry
}

// NewSnapshot returns an empty snapshot for model.
func NewSnapshot(model string) *Snapshot {
	return &Snapshot{
		Model:   model,
		Entries: make(map[string]Entry),
	}
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Lookup returns the entry for id when its fingerprint matches.
func (s *Snapshot) Lookup(id, fingerprint string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.Entries[id]
	if !ok || e.Fingerprint != fingerprint {
		return Entry{}, false
	}
	return e, true
}

// Store loads and saves snapshots. Save fully replaces what Load would
// return; there are no incremental writes.
type Store interface {
	// Load returns the persisted snapshot. A store that has never been
	// written returns an empty snapshot and no error. Unreadable content
	// fails with a *CorruptCacheError.
	Load(ctx context.Context) (*Snapshot, error)

	// Save atomically replaces the persisted snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	Close() error
}
