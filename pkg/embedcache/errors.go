package embedcache

import (
	"errors"
	"fmt"
)

// ErrCorruptCache matches every *CorruptCacheError.
var ErrCorruptCache = errors.New("embedding cache is corrupt")

// CorruptCacheError reports a cache blob that exists but cannot be decoded.
// It is kept distinct from an absent cache so that a full re-embedding never
// happens silently.
type CorruptCacheError struct {
	// Location is the file path or table row the blob came from.
	Location string
	Err      error
}

func (e *CorruptCacheError) Error() string {
	return fmt.Sprintf("embedding cache %s is corrupt: %v", e.Location, e.Err)
}

func (e *CorruptCacheError) Unwrap() []error {
	return []error{ErrCorruptCache, e.Err}
}
