// Package faults defines the error taxonomy shared across the RAG pipeline.
// Every failure surfaced by a pipeline component wraps one of the sentinel
// errors below and carries the name of the component that raised it, so
// callers can branch on error kind and observability can attribute failures.
package faults

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline. Transient errors (provider/index
// unavailable) are retried exactly once at the point of call; the rest
// propagate to the orchestrator, which decides degraded vs failed.
var (
	// ErrProviderUnavailable marks a network or auth failure talking to the
	// embedding or generation provider. Retryable once.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrIndexUnavailable marks a connectivity failure talking to the vector
	// index. Retryable once; persistent failure becomes ErrRetrievalFailed.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrInvalidInput marks a caller error (e.g. empty query). Not retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a chunk id present in the vector index but missing
	// from the document store. Logged and treated as a partial result.
	ErrNotFound = errors.New("not found")

	// ErrRetrievalFailed means the index stayed unavailable after the retry.
	// Distinct from a valid empty result set.
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrGenerationTimeout means the generation call exceeded its deadline.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrGenerationProvider means the generation provider returned an error.
	ErrGenerationProvider = errors.New("generation provider error")

	// ErrEmptyContext means generation was requested with zero passages and
	// the configured policy requires at least one.
	ErrEmptyContext = errors.New("empty prompt context")

	// ErrPoolExhausted means a bounded provider pool had no free slot within
	// its checkout timeout. Requests fail fast instead of queueing.
	ErrPoolExhausted = errors.New("connection pool exhausted")
)

// Fault wraps an underlying error with the component that raised it.
type Fault struct {
	Comp string
	Err  error
}

// Wrap attaches a component name to err. Returns nil when err is nil.
func Wrap(component string, err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Comp: component, Err: err}
}

// Wrapf attaches a component name and a formatted message to sentinel.
func Wrapf(component string, sentinel error, format string, args ...interface{}) error {
	return &Fault{Comp: component, Err: fmt.Errorf(format+": %w", append(args, sentinel)...)}
}

// WrapAs classifies cause under sentinel without losing the causal chain:
// errors.Is matches sentinel, cause, and anything cause wraps. Returns nil
// when cause is nil.
func WrapAs(component string, sentinel, cause error) error {
	if cause == nil {
		return nil
	}
	return &Fault{Comp: component, Err: &chain{sentinel: sentinel, cause: cause}}
}

// chain carries both a sentinel classification and the causal error so that
// errors.Is and errors.As traverse both branches.
type chain struct {
	sentinel error
	cause    error
}

func (c *chain) Error() string {
	return c.sentinel.Error() + ": " + c.cause.Error()
}

func (c *chain) Unwrap() []error {
	return []error{c.sentinel, c.cause}
}

func (f *Fault) Error() string {
	return f.Comp + ": " + f.Err.Error()
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Component returns the name of the component that raised err, or "" when the
// error carries no attribution.
func Component(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Comp
	}
	return ""
}

// Transient reports whether err is retryable at the point of call.
func Transient(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrIndexUnavailable)
}
