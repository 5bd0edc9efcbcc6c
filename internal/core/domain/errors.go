package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotReady indicates the pipeline has not been initialised
	// or has already been shut down.
	ErrNotReady = errors.New("pipeline not ready")

	// ErrProviderUnavailable indicates a provider is not configured.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRateLimited indicates a provider rejected a call for throughput.
	ErrRateLimited = errors.New("rate limited")

	// ErrProviderRejected indicates a provider refused a request in a way
	// that retrying cannot fix, such as bad credentials or an unknown model.
	ErrProviderRejected = errors.New("provider rejected request")

	// ErrUnsupportedFormat indicates no extractor handles a content type.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// Non-fatal pipeline conditions. They are logged and recorded as
	// result warnings, never returned to callers.

	// ErrPlanningDegraded indicates the planner fell back to the raw query.
	ErrPlanningDegraded = errors.New("query planning degraded")

	// ErrRetrievalEmpty indicates retrieval produced no matches.
	ErrRetrievalEmpty = errors.New("retrieval returned no matches")
)

// ChunkingError reports input that cannot be chunked.
// It is fatal to the affected document only.
type ChunkingError struct {
	DocumentID string
	Reason     string
}

func (e *ChunkingError) Error() string {
	if e.DocumentID == "" {
		return "chunking: " + e.Reason
	}
	return fmt.Sprintf("chunking document %s: %s", e.DocumentID, e.Reason)
}

// ProviderError reports an embedding or completion call that failed
// after its retries were exhausted.
type ProviderError struct {
	Provider string
	Op       string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s %s failed after %d attempt(s): %v", e.Provider, e.Op, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// VectorStoreError reports a failed upsert, query or delete.
type VectorStoreError struct {
	Op        string
	Namespace string
	Err       error
}

func (e *VectorStoreError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("vector store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("vector store %s in namespace %s: %v", e.Op, e.Namespace, e.Err)
}

func (e *VectorStoreError) Unwrap() error { return e.Err }

// SynthesisError reports an unrecoverable completion failure while
// producing an answer. It is fatal for the query.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// ProviderStatusError builds the error for a non-success HTTP response
// from a provider. 429 wraps ErrRateLimited; other 4xx responses except
// 408 wrap ErrProviderRejected.
func ProviderStatusError(provider string, status int, detail string) error {
	err := fmt.Errorf("%s error (status %d): %s", provider, status, detail)
	switch {
	case status == 429:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case status >= 400 && status < 500 && status != 408:
		return fmt.Errorf("%w: %w", ErrProviderRejected, err)
	default:
		return err
	}
}

// KindOf classifies an error for per-document batch reporting.
func KindOf(err error) ErrorKind {
	var (
		chunkErr *ChunkingError
		provErr  *ProviderError
		storeErr *VectorStoreError
	)
	switch {
	case errors.As(err, &chunkErr):
		return ErrorKindChunking
	case errors.As(err, &provErr):
		return ErrorKindProvider
	case errors.As(err, &storeErr):
		return ErrorKindVectorStore
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedFormat):
		return ErrorKindInvalidInput
	default:
		return ErrorKindInternal
	}
}
