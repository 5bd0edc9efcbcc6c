package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Normaliser extracts readable text from one family of file formats.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority orders normalisers that share a MIME type. Higher wins.
	Priority() int

	// Normalise extracts text from raw content. Malformed input fails
	// with domain.ErrInvalidInput.
	Normalise(ctx context.Context, raw *domain.RawContent) (*domain.ExtractedText, error)
}
