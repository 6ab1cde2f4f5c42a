package llm

import (
	"errors"
	"fmt"
)

// ErrGeneration wraps every failure to obtain a reply from a provider.
var ErrGeneration = errors.New("generation failed")

// StatusError is a non-2xx response from a chat provider.
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

func (e *StatusError) Unwrap() error {
	return ErrGeneration
}
