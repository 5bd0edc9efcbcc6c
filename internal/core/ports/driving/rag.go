package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RAGService is the document lifecycle and query surface of the pipeline.
// Every driving adapter (CLI, MCP, HTTP) goes through it.
type RAGService interface {
	// Initialize verifies collaborators and marks the service ready.
	Initialize(ctx context.Context) error

	// Shutdown releases collaborators. Further calls fail with domain.ErrNotReady.
	Shutdown(ctx context.Context) error

	// AddDocument chunks, embeds and upserts a document.
	AddDocument(ctx context.Context, doc domain.Document) (domain.DocumentResult, error)

	// BatchAddDocuments ingests documents independently and reports a
	// result per document. A failing document never aborts the batch.
	BatchAddDocuments(ctx context.Context, docs []domain.Document) (domain.BatchResult, error)

	// UpdateDocument deletes every record of the document in its domain
	// and re-runs the add path with the new content and metadata. It fails
	// with domain.ErrInvalidInput when the document lives in another domain.
	UpdateDocument(ctx context.Context, id, content string, metadata domain.DocumentMetadata) (domain.DocumentResult, error)

	// RemoveDocument deletes every record of the document in the domain.
	RemoveDocument(ctx context.Context, id, domainName string) (domain.DocumentResult, error)

	// Query runs planning, retrieval and synthesis for a query in a domain.
	Query(ctx context.Context, query, domainName string, opts domain.QueryOptions) (*domain.RAGResult, error)

	// Status reports readiness and store contents.
	Status(ctx context.Context) (*domain.Status, error)
}
