package domain

import "fmt"

// LocalStoreError signals that device-local storage failed while it was the
// last line of persistence. There is no further fallback: callers must surface
// it to the user.
type LocalStoreError struct {
	Op  string
	Err error
}

func (e LocalStoreError) Error() string {
	return fmt.Sprintf("local storage %s: %v", e.Op, e.Err)
}

func (e LocalStoreError) Unwrap() error { return e.Err }

// ValidationError is raised synchronously, before any I/O, when a record
// fails a submission precondition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// RenderError wraps a failure of the PDF-rendering collaborator. Fatal to the
// submission that triggered it.
type RenderError struct {
	Err error
}

func (e RenderError) Error() string { return fmt.Sprintf("render report: %v", e.Err) }

func (e RenderError) Unwrap() error { return e.Err }
