package types

import (
	"errors"
	"fmt"
)

const (
	MsgGenerationFailed = "Failed to generate prompt. Please check your API key and try again."
	MsgTestFailed       = "Failed to get a test response from the model."
)

// GenerationError reports a failed generation round trip. Message is shown
// to the user; Err carries the cause for logs.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func NewGenerationError(err error) *GenerationError {
	return &GenerationError{Message: MsgGenerationFailed, Err: err}
}

// TestError reports a failed test round trip.
type TestError struct {
	Message string
	Err     error
}

func (e *TestError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *TestError) Unwrap() error { return e.Err }

func NewTestError(err error) *TestError {
	return &TestError{Message: MsgTestFailed, Err: err}
}

// PersistenceWarning describes a storage read or write that failed and was
// absorbed. It is logged, never returned to callers of the history store.
type PersistenceWarning struct {
	Op  string
	Key string
	Err error
}

func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", w.Op, w.Key, w.Err)
}

func (w *PersistenceWarning) Unwrap() error { return w.Err }

// UserMessage returns the text to show the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Message
	}
	var testErr *TestError
	if errors.As(err, &testErr) {
		return testErr.Message
	}
	return err.Error()
}
