package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Chunker splits document text into ordered, overlapping chunks.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Chunk splits text belonging to docID. Empty or non-text input fails
	// with *domain.ChunkingError.
	Chunk(ctx context.Context, docID, text string) ([]domain.Chunk, error)
}
