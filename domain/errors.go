package domain

import (
	"errors"
	"fmt"
)

// ErrArtifactExists is returned when an artifact is already present at its
// final path. Concurrent misses for the same key end up here; it is not a failure.
var ErrArtifactExists = errors.New("artifact already exists")

// ValidationError reports input that violates a precondition. It is raised
// before any network or disk access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SynthesisError is returned when the synthesis service answers with a
// non-success status. Body holds the diagnostic payload as received.
type SynthesisError struct {
	StatusCode int
	Body       []byte
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis service returned status %d: %s", e.StatusCode, string(e.Body))
}

// IOError wraps a filesystem failure. Partial files have already been
// removed by the time it reaches the caller.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NotSupportedError is returned by capabilities that are declared but not implemented.
type NotSupportedError struct {
	Capability string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s is not supported", e.Capability)
}
