package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorStore persists VectorRecords partitioned by namespace and answers
// similarity queries within one namespace.
//
// Implementations must:
//   - Treat Upsert as idempotent by (namespace, id): re-upserting overwrites.
//   - Never return a match from a namespace other than the one queried.
//   - Return matches sorted by score descending, scores in [0,1].
//   - Wrap failures in *domain.VectorStoreError.
type VectorStore interface {
	// Upsert inserts or overwrites records in the namespace.
	Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error

	// Query returns at most topK records of the namespace most similar to
	// vector that satisfy filter. A nil filter matches everything.
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter domain.Filter) ([]VectorMatch, error)

	// Delete removes records of the namespace selected by req and returns
	// the number removed.
	Delete(ctx context.Context, namespace string, req DeleteRequest) (int, error)

	// Stats summarises the store contents.
	Stats(ctx context.Context) (domain.StoreStats, error)

	// Ping verifies the store is usable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorMatch is a stored record returned by a similarity query.
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// DeleteRequest selects records to delete. Exactly one selector is used,
// checked in the order IDs, DocumentID, Filter.
type DeleteRequest struct {
	IDs        []string
	DocumentID string
	Filter     domain.Filter
}

// IsEmpty reports whether no selector is set.
func (r DeleteRequest) IsEmpty() bool {
	return len(r.IDs) == 0 && r.DocumentID == "" && len(r.Filter) == 0
}
