package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// QueryPlanner rewrites a raw query into a semantic query plus filters.
// It never fails: unusable planner output yields domain.FallbackPlan.
type QueryPlanner interface {
	Plan(ctx context.Context, query, domainName string) domain.QueryPlan
}

// Retriever finds the chunks relevant to a plan.
type Retriever interface {
	// Retrieve returns matches ordered by score descending. An empty
	// result is not an error.
	Retrieve(ctx context.Context, plan domain.QueryPlan, opts domain.RetrievalOptions) ([]domain.RetrievalMatch, error)
}

// ResponseSynthesizer turns retrieved context into an answer.
type ResponseSynthesizer interface {
	// Synthesize fails with *domain.SynthesisError when no answer can be produced.
	Synthesize(ctx context.Context, query string, plan domain.QueryPlan, matches []domain.RetrievalMatch) (domain.Synthesis, error)
}
