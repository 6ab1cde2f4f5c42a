package embedcache

import (
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/crmchat/pkg/fingerprint"
)

// FormatVersion is written into every blob.
const FormatVersion = 1

// blob is the persisted form: two parallel ID-keyed mappings plus enough
// header to tell an empty cache from a foreign or damaged file.
type blob struct {
	Version      int                  `json:"version"`
	Model        string               `json:"model"`
	Fingerprints map[string]string    `json:"fingerprints"`
	Embeddings   map[string][]float32 `json:"embeddings"`
}

// Encode serializes snap.
func Encode(snap *Snapshot) ([]byte, error) {
	if snap == nil {
		snap = NewSnapshot("")
	}

	b := blob{
		Version:      FormatVersion,
		Model:        snap.Model,
		Fingerprints: make(map[string]string, len(snap.Entries)),
		Embeddings:   make(map[string][]float32, len(snap.Entries)),
	}
	for id, e := range snap.Entries {
		b.Fingerprints[id] = e.Fingerprint
		b.Embeddings[id] = e.Embedding
	}

	return json.Marshal(b)
}

// Decode parses data produced by Encode. Empty data is an empty snapshot.
// Any other failure is returned as a plain error for the caller to wrap in
// a CorruptCacheError with its location.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) == 0 {
		return NewSnapshot(""), nil
	}

	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decoding blob: %w", err)
	}

	if b.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported format version %d", b.Version)
	}
	if len(b.Fingerprints) != len(b.Embeddings) {
		return nil, fmt.Errorf("%d fingerprints but %d embeddings", len(b.Fingerprints), len(b.Embeddings))
	}

	snap := NewSnapshot(b.Model)
	for id, fp := range b.Fingerprints {
		emb, ok := b.Embeddings[id]
		if !ok {
			return nil, fmt.Errorf("document %q has a fingerprint but no embedding", id)
		}
		if !fingerprint.Valid(fp) {
			return nil, fmt.Errorf("document %q has a malformed fingerprint", id)
		}
		if len(emb) == 0 {
			return nil, fmt.Errorf("document %q has an empty embedding", id)
		}
		snap.Entries[id] = Entry{Fingerprint: fp, Embedding: emb}
	}

	return snap, nil
}
