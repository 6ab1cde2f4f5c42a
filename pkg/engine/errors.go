package engine

import "errors"

var (
	// ErrEmptyQuestion is returned by Query and Ask for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrModelMismatch is returned when questions would be embedded with a
	// different model than the documents were.
	ErrModelMismatch = errors.New("query embedding model does not match index model")
)
