package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

func fitnessCorpus() []domain.Document {
	return []domain.Document{
		doc("doc1", "fitness", "HIIT sessions alternate short sprints with rest periods."),
		doc("doc2", "fitness", "A beginner HIIT plan uses twenty second efforts."),
		doc("doc3", "fitness", "Advanced HIIT circuits combine burpees and kettlebells."),
		doc("doc4", "fitness", "Yoga improves mobility and balance over time."),
		doc("doc5", "fitness", "Sleep is when muscles recover after training."),
	}
}

func TestRAGOrchestrator_NotReady(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder()
	store := memory.NewVectorStore(0)
	orch := NewRAGOrchestrator(Deps{
		Chunker:     chunker.New(),
		Embedder:    embedder,
		Store:       store,
		Planner:     NewQueryPlanner(nil),
		Retriever:   NewRetriever(embedder, store),
		Synthesizer: NewResponseSynthesizer(nil, 0),
	}, DefaultConfig())

	assertNotReady := func(t *testing.T) {
		_, err := orch.AddDocument(ctx, doc("doc1", "fitness", "HIIT"))
		assert.ErrorIs(t, err, domain.ErrNotReady)
		_, err = orch.BatchAddDocuments(ctx, []domain.Document{doc("doc1", "fitness", "HIIT")})
		assert.ErrorIs(t, err, domain.ErrNotReady)
		_, err = orch.UpdateDocument(ctx, "doc1", "HIIT", domain.DocumentMetadata{Domain: "fitness"})
		assert.ErrorIs(t, err, domain.ErrNotReady)
		_, err = orch.RemoveDocument(ctx, "doc1", "fitness")
		assert.ErrorIs(t, err, domain.ErrNotReady)
		_, err = orch.Query(ctx, "HIIT", "fitness", domain.QueryOptions{})
		assert.ErrorIs(t, err, domain.ErrNotReady)

		status, err := orch.Status(ctx)
		require.NoError(t, err)
		assert.False(t, status.IsReady)
		assert.Equal(t, "keyword-test", status.EmbeddingModel)
	}

	t.Run("before initialize", assertNotReady)

	require.NoError(t, orch.Initialize(ctx))
	require.NoError(t, orch.Initialize(ctx), "initialize is idempotent")
	status, err := orch.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsReady)

	require.NoError(t, orch.Shutdown(ctx))
	require.NoError(t, orch.Shutdown(ctx), "shutdown is idempotent")
	assert.True(t, embedder.closed.Load())

	t.Run("after shutdown", assertNotReady)

	assert.ErrorIs(t, orch.Initialize(ctx), domain.ErrNotReady)
}

func TestRAGOrchestrator_InitializeFails(t *testing.T) {
	t.Run("embedder unreachable", func(t *testing.T) {
		embedder := newKeywordEmbedder()
		embedder.pingErr = errBoom
		store := memory.NewVectorStore(0)
		orch := NewRAGOrchestrator(Deps{
			Chunker:     chunker.New(),
			Embedder:    embedder,
			Store:       store,
			Planner:     NewQueryPlanner(nil),
			Retriever:   NewRetriever(embedder, store),
			Synthesizer: NewResponseSynthesizer(nil, 0),
		}, DefaultConfig())

		err := orch.Initialize(context.Background())
		assert.ErrorIs(t, err, errBoom)

		_, err = orch.Query(context.Background(), "HIIT", "fitness", domain.QueryOptions{})
		assert.ErrorIs(t, err, domain.ErrNotReady)
	})

	t.Run("missing collaborator", func(t *testing.T) {
		orch := NewRAGOrchestrator(Deps{Embedder: newKeywordEmbedder()}, DefaultConfig())
		assert.ErrorIs(t, orch.Initialize(context.Background()), domain.ErrInvalidInput)
	})
}

func TestRAGOrchestrator_AddDocument(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	d := doc("doc1", "fitness", "HIIT sessions alternate short sprints with rest periods.")
	d.Metadata.Title = "HIIT basics"
	d.Metadata.Tags = []string{"cardio"}

	res, err := h.orch.AddDocument(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentResult{DocumentID: "doc1", Status: domain.StatusAdded, ChunkCount: 1}, res)

	matches, err := h.store.Query(ctx, "fitness", mustEmbed(t, h, "hiit"), 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc1_0", matches[0].ID)
	assert.Equal(t, "fitness", matches[0].Metadata[domain.MetaDomain])
	assert.Equal(t, "doc1", matches[0].Metadata[domain.MetaDocumentID])
	assert.Equal(t, "HIIT basics", matches[0].Metadata[domain.MetaTitle])
	assert.Equal(t, d.Content, matches[0].Metadata[domain.MetaText])

	t.Run("re-adding reports updated", func(t *testing.T) {
		res, err := h.orch.AddDocument(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusUpdated, res.Status)

		stats, err := h.store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Namespaces["fitness"].Records)
	})

	t.Run("empty content is a chunking error", func(t *testing.T) {
		res, err := h.orch.AddDocument(ctx, doc("empty", "fitness", "   "))
		var chunkErr *domain.ChunkingError
		require.ErrorAs(t, err, &chunkErr)
		assert.Equal(t, domain.StatusFailed, res.Status)
		assert.Equal(t, domain.ErrorKindChunking, res.ErrorKind)
	})

	t.Run("missing domain is invalid", func(t *testing.T) {
		_, err := h.orch.AddDocument(ctx, doc("nodomain", "", "HIIT"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("content over limit is invalid", func(t *testing.T) {
		_, err := h.orch.AddDocument(ctx, doc("huge", "fitness", strings.Repeat("a", domain.MaxContentLength+1)))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRAGOrchestrator_AddDocument_EmbeddingFailureKeepsOldRecords(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	_, err := h.orch.AddDocument(ctx, doc("doc1", "fitness", "HIIT original version."))
	require.NoError(t, err)

	h.embedder.err = errBoom
	res, err := h.orch.AddDocument(ctx, doc("doc1", "fitness", "HIIT replacement version."))
	var provErr *domain.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "embed_batch", provErr.Op)
	assert.Equal(t, domain.ErrorKindProvider, res.ErrorKind)

	h.embedder.err = nil
	matches, err := h.store.Query(ctx, "fitness", mustEmbed(t, h, "hiit"), 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "HIIT original version.", matches[0].Metadata[domain.MetaText])
}

func TestRAGOrchestrator_AddDocument_StoreFailure(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.store.upsertErr = errBoom

	res, err := h.orch.AddDocument(context.Background(), doc("doc1", "fitness", "HIIT"))
	var storeErr *domain.VectorStoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "upsert", storeErr.Op)
	assert.Equal(t, "fitness", storeErr.Namespace)
	assert.Equal(t, domain.ErrorKindVectorStore, res.ErrorKind)
}

func TestRAGOrchestrator_UpdateDocument_LeavesNoStaleChunks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	long := strings.Repeat("HIIT intervals build endurance quickly. ", 80)
	res, err := h.orch.AddDocument(ctx, doc("doc1", "fitness", long))
	require.NoError(t, err)
	require.Greater(t, res.ChunkCount, 1)

	res, err = h.orch.UpdateDocument(ctx, "doc1", "Short HIIT note.", domain.DocumentMetadata{Domain: "fitness"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUpdated, res.Status)
	assert.Equal(t, 1, res.ChunkCount)

	stats, err := h.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Namespaces["fitness"].Records)
	assert.Equal(t, 1, stats.Namespaces["fitness"].Documents)
}

func TestRAGOrchestrator_UpdateDocument_UnknownIDIsUpdated(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	res, err := h.orch.UpdateDocument(context.Background(), "new", "HIIT", domain.DocumentMetadata{Domain: "fitness"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUpdated, res.Status)
}

func TestRAGOrchestrator_UpdateDocument_RejectsDomainChange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	_, err := h.orch.AddDocument(ctx, doc("doc1", "fitness", "HIIT intervals build endurance."))
	require.NoError(t, err)

	res, err := h.orch.UpdateDocument(ctx, "doc1", "HIIT pasta.", domain.DocumentMetadata{Domain: "cooking"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.StatusFailed, res.Status)

	stats, err := h.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Namespaces["fitness"].Documents)
	assert.Zero(t, stats.Namespaces["cooking"].Records)

	// Once removed from fitness it can be added to cooking.
	_, err = h.orch.RemoveDocument(ctx, "doc1", "fitness")
	require.NoError(t, err)
	res, err = h.orch.UpdateDocument(ctx, "doc1", "HIIT pasta.", domain.DocumentMetadata{Domain: "cooking"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUpdated, res.Status)
}

// Query "best HIIT routine" in fitness with topK 5 and minScore 0.7.
func TestRAGOrchestrator_Query_ScoreFloorAndDomain(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	batch, err := h.orch.BatchAddDocuments(ctx, fitnessCorpus())
	require.NoError(t, err)
	require.Equal(t, 5, batch.Successful)
	_, err = h.orch.AddDocument(ctx, doc("cook1", "cooking", "HIIT pasta: cook pasta between HIIT sets."))
	require.NoError(t, err)

	result, err := h.orch.Query(ctx, "best HIIT routine", "fitness", domain.QueryOptions{TopK: 5, MinScore: float(0.7)})
	require.NoError(t, err)

	require.NotEmpty(t, result.Sources)
	assert.LessOrEqual(t, len(result.Sources), 5)
	for _, s := range result.Sources {
		assert.GreaterOrEqual(t, s.Score, 0.7)
		assert.Equal(t, "fitness", s.Metadata[domain.MetaDomain])
		assert.NotEqual(t, "cook1", s.DocumentID)
	}
	assert.ElementsMatch(t, []string{"doc1", "doc2", "doc3"}, sourceDocs(result))

	assert.Equal(t, "best HIIT routine", result.Metadata.OriginalQuery)
	assert.Equal(t, len(result.Sources), result.Metadata.TotalMatches)
	assert.Equal(t, "fitness", result.Metadata.Plan.Domain())
	assert.Empty(t, result.Metadata.Warnings)
	assert.Contains(t, result.Answer, "[1]")
	assert.Greater(t, result.Confidence, 0.9)
	assert.LessOrEqual(t, result.Confidence, 1.0)
	assert.GreaterOrEqual(t, result.ProcessingTimeMs, int64(0))
}

// A domain with no documents still reaches the synthesizer.
func TestRAGOrchestrator_Query_EmptyDomain(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	_, err := h.orch.BatchAddDocuments(ctx, fitnessCorpus())
	require.NoError(t, err)

	result, err := h.orch.Query(ctx, "what is a black hole", "astronomy", domain.QueryOptions{})
	require.NoError(t, err)

	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)
	assert.Less(t, result.Confidence, 0.3)
	assert.Contains(t, strings.ToLower(result.Answer), "no relevant information")
	assert.Contains(t, result.Metadata.Warnings, domain.WarningRetrievalEmpty)
	assert.Len(t, h.completer.synthesisRequests(), 1)
}

func TestRAGOrchestrator_Query_EmptyContextAnswerIsCanonical(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.completer.respond = func(req driven.CompletionRequest) (string, error) {
		if req.JSON {
			return cooperativeModel(req)
		}
		return "Black holes are regions of spacetime.", nil
	}

	result, err := h.orch.Query(context.Background(), "what is a black hole", "astronomy", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.NoInformationAnswer, result.Answer)
}

func TestRAGOrchestrator_RemoveDocument(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	_, err := h.orch.BatchAddDocuments(ctx, fitnessCorpus())
	require.NoError(t, err)

	before, err := h.orch.Query(ctx, "best HIIT routine", "fitness", domain.QueryOptions{})
	require.NoError(t, err)
	require.Contains(t, sourceDocs(before), "doc1")

	res, err := h.orch.RemoveDocument(ctx, "doc1", "fitness")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentResult{DocumentID: "doc1", Status: domain.StatusRemoved, ChunkCount: 1}, res)

	after, err := h.orch.Query(ctx, "best HIIT routine", "fitness", domain.QueryOptions{})
	require.NoError(t, err)
	assert.NotContains(t, sourceDocs(after), "doc1")
	assert.NotEmpty(t, after.Sources)

	t.Run("unknown document removes nothing", func(t *testing.T) {
		res, err := h.orch.RemoveDocument(ctx, "missing", "fitness")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRemoved, res.Status)
		assert.Zero(t, res.ChunkCount)
	})

	t.Run("other domain untouched", func(t *testing.T) {
		_, err := h.orch.AddDocument(ctx, doc("doc2", "cooking", "HIIT pasta"))
		require.NoError(t, err)
		_, err = h.orch.RemoveDocument(ctx, "doc2", "cooking")
		require.NoError(t, err)

		result, err := h.orch.Query(ctx, "HIIT", "fitness", domain.QueryOptions{})
		require.NoError(t, err)
		assert.Contains(t, sourceDocs(result), "doc2")
	})

	t.Run("requires id and domain", func(t *testing.T) {
		_, err := h.orch.RemoveDocument(ctx, "", "fitness")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = h.orch.RemoveDocument(ctx, "doc3", " ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

// A batch of ten where the fourth document is empty.
func TestRAGOrchestrator_BatchAddDocuments_PartialFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	docs := make([]domain.Document, 10)
	for i := range docs {
		docs[i] = doc(fmt.Sprintf("doc%d", i+1), "fitness", fmt.Sprintf("HIIT workout number %d.", i+1))
	}
	docs[3].Content = ""

	batch, err := h.orch.BatchAddDocuments(ctx, docs)
	require.NoError(t, err)

	assert.Equal(t, 10, batch.Total)
	assert.Equal(t, 9, batch.Successful)
	assert.Equal(t, 1, batch.Failed)
	require.Len(t, batch.Results, 10)
	for i, r := range batch.Results {
		assert.Equal(t, docs[i].ID, r.DocumentID, "results keep input order")
		if i == 3 {
			assert.Equal(t, domain.StatusFailed, r.Status)
			assert.Equal(t, domain.ErrorKindChunking, r.ErrorKind)
			assert.NotEmpty(t, r.Error)
			continue
		}
		assert.Equal(t, domain.StatusAdded, r.Status)
	}

	status, err := h.orch.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, status.DocumentCount)
	assert.Equal(t, map[string]int{"fitness": 9}, status.Namespaces)
	assert.Equal(t, 9, h.metrics.documents[string(domain.StatusAdded)])
	assert.Equal(t, 1, h.metrics.documents[string(domain.StatusFailed)])
}

func TestRAGOrchestrator_BatchAddDocuments_Pacing(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Ingestion.BatchSize = 3
	cfg.Ingestion.Concurrency = 2

	docs := make([]domain.Document, 7)
	for i := range docs {
		docs[i] = doc(fmt.Sprintf("doc%d", i), "fitness", "HIIT")
	}

	t.Run("waits before each batch after the first", func(t *testing.T) {
		h := newHarness(t, cfg)
		batch, err := h.orch.BatchAddDocuments(ctx, docs)
		require.NoError(t, err)
		assert.Equal(t, 7, batch.Successful)
		assert.Equal(t, int32(2), h.pacer.waits.Load())
	})

	t.Run("pacer failure fails remaining documents", func(t *testing.T) {
		h := newHarness(t, cfg)
		h.pacer.err = context.Canceled
		batch, err := h.orch.BatchAddDocuments(ctx, docs)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 3, batch.Successful)
		assert.Equal(t, 4, batch.Failed)
		assert.Equal(t, domain.StatusFailed, batch.Results[3].Status)
	})
}

func TestRAGOrchestrator_BatchAddDocuments_RateLimitSlowsPacer(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.embedder.failOn = "throttle"
	h.embedder.err = &domain.ProviderError{Provider: "test", Op: "embed_batch", Attempts: 3,
		Err: fmt.Errorf("%w: status 429", domain.ErrRateLimited)}

	batch, err := h.orch.BatchAddDocuments(context.Background(), []domain.Document{
		doc("ok", "fitness", "HIIT"),
		doc("slow", "fitness", "throttle HIIT"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, domain.ErrorKindProvider, batch.Results[1].ErrorKind)
	assert.Equal(t, int32(1), h.pacer.rateLimited.Load())
}

func TestRAGOrchestrator_BatchAddDocuments_Validation(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	_, err := h.orch.BatchAddDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.orch.BatchAddDocuments(context.Background(), make([]domain.Document, domain.MaxBatchSize+1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRAGOrchestrator_Query_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	// Same id and text in two domains.
	_, err := h.orch.AddDocument(ctx, doc("shared", "fitness", "HIIT"))
	require.NoError(t, err)
	_, err = h.orch.AddDocument(ctx, doc("shared", "cooking", "HIIT"))
	require.NoError(t, err)

	for _, domainName := range []string{"fitness", "cooking"} {
		result, err := h.orch.Query(ctx, "HIIT", domainName, domain.QueryOptions{MinScore: float(0)})
		require.NoError(t, err)
		require.Len(t, result.Sources, 1)
		assert.Equal(t, domainName, result.Sources[0].Metadata[domain.MetaDomain])
	}
}

func TestRAGOrchestrator_Query_DiversityCap(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Retrieval.MaxChunksPerDocument = 1

	h := newHarness(t, cfg)
	long := strings.Repeat("HIIT intervals build endurance quickly. ", 80)
	_, err := h.orch.AddDocument(ctx, doc("long", "fitness", long))
	require.NoError(t, err)
	_, err = h.orch.AddDocument(ctx, doc("short", "fitness", "HIIT"))
	require.NoError(t, err)

	result, err := h.orch.Query(ctx, "HIIT", "fitness", domain.QueryOptions{TopK: 5})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"long", "short"}, sourceDocs(result))
	assert.Equal(t, 15, h.store.lastTopK)
}

func TestRAGOrchestrator_Query_Validation(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	tests := []struct {
		name   string
		query  string
		domain string
		opts   domain.QueryOptions
	}{
		{name: "empty query", query: "  ", domain: "fitness"},
		{name: "query too long", query: strings.Repeat("q", domain.MaxQueryLength+1), domain: "fitness"},
		{name: "missing domain", query: "HIIT", domain: ""},
		{name: "topK too large", query: "HIIT", domain: "fitness", opts: domain.QueryOptions{TopK: 21}},
		{name: "negative topK", query: "HIIT", domain: "fitness", opts: domain.QueryOptions{TopK: -1}},
		{name: "minScore above one", query: "HIIT", domain: "fitness", opts: domain.QueryOptions{MinScore: float(1.5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.orch.Query(context.Background(), tt.query, tt.domain, tt.opts)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestRAGOrchestrator_RetrievalOptions(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	perDoc := func(v int) *int { return &v }

	defaults := h.orch.retrievalOptions(domain.QueryOptions{})
	assert.Equal(t, domain.DefaultMaxChunksPerDoc, defaults.MaxPerDocument)

	assert.Equal(t, 0, h.orch.retrievalOptions(domain.QueryOptions{MaxPerDocument: perDoc(0)}).MaxPerDocument)
	assert.Equal(t, 4, h.orch.retrievalOptions(domain.QueryOptions{MaxPerDocument: perDoc(4)}).MaxPerDocument)
}

func TestRAGOrchestrator_Query_DegradedPlanning(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())
	_, err := h.orch.BatchAddDocuments(ctx, fitnessCorpus())
	require.NoError(t, err)

	h.completer.respond = func(req driven.CompletionRequest) (string, error) {
		if req.JSON {
			return "I cannot produce JSON today", nil
		}
		return cooperativeModel(req)
	}

	result, err := h.orch.Query(ctx, "HIIT", "fitness", domain.QueryOptions{})
	require.NoError(t, err)
	assert.True(t, result.Metadata.Plan.Degraded)
	assert.Equal(t, domain.DegradedPlanningConfidence, result.Metadata.Plan.PlanningConfidence)
	assert.Equal(t, "HIIT", result.Metadata.Plan.SemanticQuery)
	assert.Contains(t, result.Metadata.Warnings, domain.WarningPlanningDegraded)
	assert.NotEmpty(t, result.Sources)
	assert.InDelta(t, 0.9, result.Confidence, 0.01)
}

func TestRAGOrchestrator_Query_SynthesisFailure(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.completer.respond = func(req driven.CompletionRequest) (string, error) {
		if req.JSON {
			return cooperativeModel(req)
		}
		return "", &domain.ProviderError{Provider: "test", Op: "complete", Attempts: 3, Err: errBoom}
	}

	result, err := h.orch.Query(context.Background(), "HIIT", "fitness", domain.QueryOptions{})
	assert.Nil(t, result)
	var synthErr *domain.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.ErrorIs(t, err, errBoom)
}

func TestRAGOrchestrator_Query_RetrievalFailure(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.store.queryErr = &domain.VectorStoreError{Op: "query", Namespace: "fitness", Err: errBoom}

	_, err := h.orch.Query(context.Background(), "HIIT", "fitness", domain.QueryOptions{})
	var storeErr *domain.VectorStoreError
	require.ErrorAs(t, err, &storeErr)
}

func TestRAGOrchestrator_Query_ExtractiveWithoutModel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())
	_, err := h.orch.BatchAddDocuments(ctx, fitnessCorpus())
	require.NoError(t, err)

	h.completer.respond = func(driven.CompletionRequest) (string, error) {
		return "", fmt.Errorf("%w: no completion provider configured", domain.ErrProviderUnavailable)
	}

	result, err := h.orch.Query(ctx, "HIIT", "fitness", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Contains(t, result.Metadata.Warnings, domain.WarningPlanningDegraded)
	assert.Contains(t, result.Metadata.Warnings, domain.WarningExtractiveAnswer)
	assert.Contains(t, result.Answer, "[1]")
	assert.Contains(t, result.Answer, "HIIT")
}

func TestRAGOrchestrator_Status(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.VectorBackend = "memory"
	h := newHarness(t, cfg)

	_, err := h.orch.BatchAddDocuments(ctx, fitnessCorpus())
	require.NoError(t, err)
	_, err = h.orch.AddDocument(ctx, doc("cook1", "cooking", "Pasta on a budget."))
	require.NoError(t, err)

	status, err := h.orch.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.Status{
		IsReady:          true,
		DocumentCount:    6,
		Namespaces:       map[string]int{"fitness": 5, "cooking": 1},
		VectorDimensions: len(testVocab) + 1,
		EmbeddingModel:   "keyword-test",
		CompletionModel:  "scripted-test",
		VectorBackend:    "memory",
	}, status)
}

func TestRAGOrchestrator_Metrics(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	_, err := h.orch.AddDocument(ctx, doc("doc1", "fitness", "HIIT"))
	require.NoError(t, err)
	_, err = h.orch.Query(ctx, "HIIT", "fitness", domain.QueryOptions{})
	require.NoError(t, err)
	_, err = h.orch.RemoveDocument(ctx, "doc1", "fitness")
	require.NoError(t, err)

	assert.Equal(t, 1, h.metrics.stages[driven.StageIngest])
	assert.Equal(t, 1, h.metrics.stages[driven.StagePlanning])
	assert.Equal(t, 1, h.metrics.stages[driven.StageRetrieval])
	assert.Equal(t, 1, h.metrics.stages[driven.StageSynthesis])
	assert.Equal(t, 1, h.metrics.documents[string(domain.StatusAdded)])
	assert.Equal(t, 1, h.metrics.documents[string(domain.StatusRemoved)])
	assert.Equal(t, 1, h.metrics.queries)
}

func TestRAGOrchestrator_ShutdownClosesCollaborators(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.orch.Shutdown(context.Background()))

	assert.True(t, h.embedder.closed.Load())
	assert.True(t, h.completer.closed)

	var storeErr *domain.VectorStoreError
	assert.ErrorAs(t, h.store.Ping(context.Background()), &storeErr)
}

func TestScopePlan(t *testing.T) {
	t.Run("forces the requested domain", func(t *testing.T) {
		plan := domain.QueryPlan{
			SemanticQuery: "hiit",
			Filters:       domain.Filter{domain.MetaDomain: domain.In("fitness", "cooking")},
		}
		scoped := scopePlan(plan, "HIIT", "fitness")
		assert.Equal(t, domain.Eq("fitness"), scoped.Filters[domain.MetaDomain])
		assert.True(t, plan.Filters[domain.MetaDomain].IsSet(), "input plan is not mutated")
	})

	t.Run("fills an empty semantic query", func(t *testing.T) {
		scoped := scopePlan(domain.QueryPlan{}, "HIIT", "fitness")
		assert.Equal(t, "HIIT", scoped.SemanticQuery)
		assert.Equal(t, "fitness", scoped.Domain())
	})
}

func mustEmbed(t *testing.T, h *harness, text string) []float32 {
	t.Helper()
	vec, err := h.embedder.Embed(context.Background(), text)
	require.NoError(t, err)
	return vec
}

func sourceDocs(result *domain.RAGResult) []string {
	out := make([]string, 0, len(result.Sources))
	for _, s := range result.Sources {
		out = append(out, s.DocumentID)
	}
	return out
}
