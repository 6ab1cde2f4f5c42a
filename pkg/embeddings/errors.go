package embeddings

import (
	"errors"
	"fmt"
)

// ErrEmbedding wraps every failure to obtain an embedding from a provider.
var ErrEmbedding = errors.New("embedding failed")

// StatusError is a non-2xx response from an embedding provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// HTTPStatus lets the retry package classify the failure.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// Unwrap makes every StatusError match ErrEmbedding.
func (e *StatusError) Unwrap() error {
	return ErrEmbedding
}
