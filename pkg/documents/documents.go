// Package documents enumerates the private document set the chatbot answers
// from.
package documents

import (
	"context"
	"errors"
)

// ErrRootNotFound is returned when the configured document root does not
// exist or is not a directory. It is a fatal configuration error.
var ErrRootNotFound = errors.New("document root not found")

// Document is one item of the document set.
type Document struct {
	// ID is stable across runs: the path relative to the source root, with
	// forward slashes.
	ID string

	// Text is the raw content.
	Text string
}

// Source lists the current document set.
type Source interface {
	List(ctx context.Context) ([]Document, error)
}
