package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSubmitInProgress is returned when a submission is attempted while another is running.
	ErrSubmitInProgress = errors.New("submission already in progress")

	// ErrInvalidTransition is returned when an input is not accepted in the current state.
	ErrInvalidTransition = errors.New("invalid wizard transition")

	// ErrCacheMiss is returned by cache stores when the key is absent.
	ErrCacheMiss = errors.New("cache miss")

	// ErrNotInstalled is returned when activation is requested before a successful install.
	ErrNotInstalled = errors.New("worker generation not installed")

	// ErrSubmissionNotFound is returned when a pending submission ID is unknown.
	ErrSubmissionNotFound = errors.New("pending submission not found")

	// ErrUnknownMessage is returned for worker messages with an unrecognized type.
	ErrUnknownMessage = errors.New("unknown worker message")
)

// ValidationError carries the per-field messages that blocked a step transition.
type ValidationError struct {
	Step   int
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("step %d has invalid fields (%s)", e.Step, strings.Join(parts, "; "))
}

// TransportError reports a failed lead submission.
// Status is zero when the request never produced an HTTP response.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status == 0 {
		return fmt.Sprintf("lead transport failed: %s", msg)
	}
	return fmt.Sprintf("lead transport failed with status %d: %s", e.Status, msg)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary reports whether the failure happened before the server answered,
// which is the case the offline queue retries.
func (e *TransportError) Temporary() bool {
	return e.Status == 0
}

// CacheError reports a population or lookup failure inside the offline cache layer.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }
