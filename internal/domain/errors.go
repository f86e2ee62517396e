package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrData signals a missing or malformed corpus.
	ErrData = errors.New("corpus data error")
	// ErrEmbeddingService signals an embedding provider failure (transport or malformed response).
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrCompletionService signals a chat completion provider failure.
	ErrCompletionService = errors.New("completion service error")
	// ErrSchemaValidation signals structured output that does not match the expected schema.
	ErrSchemaValidation = errors.New("schema validation error")
	// ErrExtraction signals a category extraction call that could not be completed.
	ErrExtraction = errors.New("category extraction error")
	// ErrIndexWrite signals a failed vector index upsert.
	ErrIndexWrite = errors.New("index write error")
	// ErrIndexLayout signals an index populated for a different pipeline mode or dimension.
	ErrIndexLayout = errors.New("index layout mismatch")
	// ErrIndexUnavailable signals a vector index that cannot be reached or queried.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrSummarization signals a failed candidate summarization.
	ErrSummarization = errors.New("summarization error")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrVectorDimMismatch signals a vector that cannot be brought to the configured dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrAlreadyIngested signals a second ingestion attempt within one run.
	ErrAlreadyIngested = errors.New("corpus already ingested")
	// ErrNotIngested signals a query issued before the index was populated or attached.
	ErrNotIngested = errors.New("index not ingested")
)

// IndexWriteError wraps ErrIndexWrite with the number of records already committed.
// Batches flushed before the failure stay in the index.
type IndexWriteError struct {
	Flushed int
	Total   int
	Err     error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("%s: %d of %d records flushed: %v", ErrIndexWrite.Error(), e.Flushed, e.Total, e.Err)
}

// Is reports ErrIndexWrite so callers can match the category without the concrete type.
func (e *IndexWriteError) Is(target error) bool { return target == ErrIndexWrite }

func (e *IndexWriteError) Unwrap() error { return e.Err }

// NewIndexWriteError creates an index write error.
func NewIndexWriteError(flushed, total int, err error) error {
	return &IndexWriteError{Flushed: flushed, Total: total, Err: err}
}

// IsTransient reports whether err comes from an external collaborator that may
// succeed on a later attempt. Data and schema failures are permanent.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrData), errors.Is(err, ErrSchemaValidation), errors.Is(err, ErrVectorDimMismatch),
		errors.Is(err, ErrEmbeddingQuotaExceeded), errors.Is(err, ErrIndexLayout):
		return false
	case errors.Is(err, ErrEmbeddingService), errors.Is(err, ErrCompletionService),
		errors.Is(err, ErrIndexUnavailable), errors.Is(err, ErrIndexWrite):
		return true
	default:
		return false
	}
}
