package vector

import "errors"

var (
	// ErrDimensionMismatch is returned when an embedding's length differs
	// from the index dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrConnection is returned when a remote vector store is unreachable.
	ErrConnection = errors.New("vector store connection failed")
)
