package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// candidateFactor widens the first store query when the per-document cap
// is on. The query keeps doubling, up to maxCandidates, while the cap
// leaves fewer than topK matches and the store has more to give.
const (
	candidateFactor = 3
	maxCandidates   = 1000
)

// Retriever embeds the plan's semantic query and ranks stored chunks
// within the plan's domain.
type Retriever struct {
	embedder driven.EmbeddingProvider
	store    driven.VectorStore
}

// NewRetriever creates a retriever.
func NewRetriever(embedder driven.EmbeddingProvider, store driven.VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns at most opts.TopK matches scoring at least opts.MinScore,
// with no more than opts.MaxPerDocument chunks from any one document.
func (r *Retriever) Retrieve(
	ctx context.Context, plan domain.QueryPlan, opts domain.RetrievalOptions,
) ([]domain.RetrievalMatch, error) {
	namespace := plan.Domain()
	if strings.TrimSpace(namespace) == "" {
		return nil, fmt.Errorf("%w: plan has no domain", domain.ErrInvalidInput)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	ctx, span := tracer.Start(ctx, "rag.retrieve")
	var err error
	defer func() { endSpan(span, err) }()

	vector, err := r.embedder.Embed(ctx, plan.SemanticQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	limit := topK
	if opts.MaxPerDocument > 0 {
		limit = topK * candidateFactor
	}

	var (
		found   []driven.VectorMatch
		matches []domain.RetrievalMatch
	)
	for {
		found, err = r.store.Query(ctx, namespace, vector, limit, plan.Filters)
		if err != nil {
			return nil, fmt.Errorf("query store: %w", err)
		}
		matches = selectMatches(found, namespace, topK, opts)
		if !needMoreCandidates(found, matches, limit, topK, opts) {
			break
		}
		limit = min(limit*2, maxCandidates)
	}
	span.SetAttributes(
		attribute.String("rag.domain", namespace),
		attribute.Int("rag.candidates", len(found)),
		attribute.Int("rag.matches", len(matches)),
	)
	logger.Debug("Retrieve: domain=%s candidates=%d kept=%d (minScore=%.2f, maxPerDoc=%d)",
		namespace, len(found), len(matches), opts.MinScore, opts.MaxPerDocument)
	return matches, nil
}

// needMoreCandidates reports whether a wider store query could still add
// matches that the per-document cap is holding back.
func needMoreCandidates(found []driven.VectorMatch, matches []domain.RetrievalMatch, limit, topK int, opts domain.RetrievalOptions) bool {
	switch {
	case opts.MaxPerDocument <= 0, len(matches) >= topK:
		return false
	case len(found) < limit, limit >= maxCandidates:
		return false
	default:
		return found[len(found)-1].Score >= opts.MinScore
	}
}

// selectMatches applies the score floor and per-document cap to matches
// already sorted by score, keeping at most topK. Matches recorded under
// another domain are dropped whatever the store returned.
func selectMatches(found []driven.VectorMatch, namespace string, topK int, opts domain.RetrievalOptions) []domain.RetrievalMatch {
	out := make([]domain.RetrievalMatch, 0, topK)
	perDoc := make(map[string]int)

	for _, m := range found {
		if len(out) == topK {
			break
		}
		if m.Score < opts.MinScore {
			// Sorted descending: nothing further can pass.
			break
		}
		match := toRetrievalMatch(m)
		if match.Domain() != namespace {
			logger.Warn("Dropping match %s: recorded domain %q, queried %q", m.ID, match.Domain(), namespace)
			continue
		}
		if opts.MaxPerDocument > 0 && perDoc[match.DocumentID] >= opts.MaxPerDocument {
			continue
		}
		perDoc[match.DocumentID]++
		out = append(out, match)
	}
	return out
}

func toRetrievalMatch(m driven.VectorMatch) domain.RetrievalMatch {
	docID, _ := m.Metadata[domain.MetaDocumentID].(string)
	if docID == "" {
		docID, _, _ = domain.ParseRecordID(m.ID)
	}
	text, _ := m.Metadata[domain.MetaText].(string)
	return domain.RetrievalMatch{
		ChunkID:    m.ID,
		DocumentID: docID,
		Score:      m.Score,
		Text:       text,
		Metadata:   m.Metadata,
	}
}
