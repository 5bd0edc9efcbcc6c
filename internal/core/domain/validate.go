package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Limits enforced at the pipeline boundary.
const (
	MaxContentLength = 50000
	MaxQueryLength   = 2000
	MaxBatchSize     = 50
	MaxTopK          = 20
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ValidateDocumentEnvelope checks the identity fields of a document.
// Content is left to the chunker so that empty content surfaces as a
// ChunkingError.
func ValidateDocumentEnvelope(doc Document) error {
	if strings.TrimSpace(doc.ID) == "" {
		return invalid("document id is required")
	}
	if strings.TrimSpace(doc.Metadata.Domain) == "" {
		return invalid("document %s: domain is required", doc.ID)
	}
	if n := utf8.RuneCountInString(doc.Content); n > MaxContentLength {
		return invalid("document %s: content is %d characters, limit is %d", doc.ID, n, MaxContentLength)
	}
	return nil
}

// ValidateBatchSize checks the number of documents in a batch.
func ValidateBatchSize(n int) error {
	if n < 1 || n > MaxBatchSize {
		return invalid("batch must contain 1-%d documents, got %d", MaxBatchSize, n)
	}
	return nil
}

// ValidateQuery checks a query request.
func ValidateQuery(query, domain string, opts QueryOptions) error {
	n := utf8.RuneCountInString(strings.TrimSpace(query))
	if n < 1 || utf8.RuneCountInString(query) > MaxQueryLength {
		return invalid("query must be 1-%d characters", MaxQueryLength)
	}
	if strings.TrimSpace(domain) == "" {
		return invalid("domain is required")
	}
	if opts.TopK != 0 && (opts.TopK < 1 || opts.TopK > MaxTopK) {
		return invalid("topK must be 1-%d, got %d", MaxTopK, opts.TopK)
	}
	if opts.MinScore != nil && (*opts.MinScore < 0 || *opts.MinScore > 1) {
		return invalid("minScore must be in [0,1], got %g", *opts.MinScore)
	}
	if opts.MaxPerDocument != nil && *opts.MaxPerDocument < 0 {
		return invalid("maxPerDocument must not be negative, got %d", *opts.MaxPerDocument)
	}
	return nil
}
