package embedcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFileName is used when no cache path is configured.
const DefaultFileName = "embeddings_cache.json"

// FileStore keeps the snapshot in a single local file.
type FileStore struct {
	path string
}

// NewFileStore returns a store at path. The file does not need to exist.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFileName
	}
	return &FileStore{path: path}
}

// Path returns the cache file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the cache file. A missing or zero-length file is an empty
// snapshot.
func (s *FileStore) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewSnapshot(""), nil
		}
		return nil, fmt.Errorf("reading embedding cache: %w", err)
	}

	snap, err := Decode(data)
	if err != nil {
		return nil, &CorruptCacheError{Location: s.path, Err: err}
	}
	return snap, nil
}

// Save writes the snapshot to a temporary file in the same directory and
// renames it over the cache file, so readers only ever see a complete
// snapshot.
func (s *FileStore) Save(_ context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("encoding embedding cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp cache file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing embedding cache: %w", err)
	}
	committed = true

	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

var _ Store = (*FileStore)(nil)
