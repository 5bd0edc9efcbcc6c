package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

// --- Mock implementations ---

// testVocab are the words keywordEmbedder counts. Each gets one dimension.
var testVocab = []string{"hiit", "yoga", "pasta", "budget", "sleep"}

// keywordEmbedder implements driven.EmbeddingProvider by counting
// vocabulary words, so similarity between test texts is predictable.
type keywordEmbedder struct {
	vocab   []string
	calls   atomic.Int32
	failOn  string
	err     error
	pingErr error
	closed  atomic.Bool
}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{vocab: testVocab}
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.err != nil && (e.failOn == "" || strings.Contains(text, e.failOn)) {
		return nil, e.err
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.vocab)+1)
	for i, w := range e.vocab {
		vec[i] = float32(strings.Count(lower, w))
	}
	// Small constant component keeps vectors non-zero.
	vec[len(e.vocab)] = 0.01
	return vec, nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *keywordEmbedder) Dimensions() int                { return len(e.vocab) + 1 }
func (e *keywordEmbedder) ModelName() string              { return "keyword-test" }
func (e *keywordEmbedder) Ping(ctx context.Context) error { return e.pingErr }
func (e *keywordEmbedder) Close() error                   { e.closed.Store(true); return nil }

// scriptedCompleter implements driven.CompletionProvider with a
// per-request response function and records every request.
type scriptedCompleter struct {
	mu       sync.Mutex
	requests []driven.CompletionRequest
	respond  func(req driven.CompletionRequest) (string, error)
	closed   bool
}

func (c *scriptedCompleter) Complete(_ context.Context, req driven.CompletionRequest) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	return c.respond(req)
}

func (c *scriptedCompleter) ModelName() string          { return "scripted-test" }
func (c *scriptedCompleter) Ping(context.Context) error { return nil }
func (c *scriptedCompleter) Close() error               { c.closed = true; return nil }

func (c *scriptedCompleter) synthesisRequests() []driven.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []driven.CompletionRequest
	for _, r := range c.requests {
		if !r.JSON {
			out = append(out, r)
		}
	}
	return out
}

// cooperativeModel plans by echoing the question and answers by citing
// the first passage, or says nothing was found for an empty context.
func cooperativeModel(req driven.CompletionRequest) (string, error) {
	if req.JSON {
		q := req.Prompt[strings.LastIndex(req.Prompt, "Question: ")+len("Question: "):]
		return fmt.Sprintf(`{"semantic_query": %q, "filters": {}, "confidence": 0.9}`, strings.TrimSpace(q)), nil
	}
	if strings.Contains(req.Prompt, "no relevant passages") {
		return "No relevant information was found in the knowledge base.", nil
	}
	return "According to [1], HIIT alternates sprints with rest.", nil
}

// recordingPacer implements driven.Pacer and the rate limit feedback hook.
type recordingPacer struct {
	waits       atomic.Int32
	rateLimited atomic.Int32
	err         error
}

func (p *recordingPacer) Wait(context.Context) error {
	p.waits.Add(1)
	return p.err
}

func (p *recordingPacer) RecordRateLimit(time.Duration) {
	p.rateLimited.Add(1)
}

// recordingMetrics implements driven.PipelineMetrics.
type recordingMetrics struct {
	mu        sync.Mutex
	stages    map[string]int
	documents map[string]int
	queries   int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{stages: map[string]int{}, documents: map[string]int{}}
}

func (m *recordingMetrics) ObserveStage(stage string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages[stage]++
}

func (m *recordingMetrics) DocumentProcessed(_, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[status]++
}

func (m *recordingMetrics) QueryAnswered(string, float64, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
}

// failingStore wraps the memory store and fails selected operations.
type failingStore struct {
	*memory.VectorStore
	upsertErr error
	queryErr  error
	lastTopK  int
}

func (s *failingStore) Upsert(ctx context.Context, ns string, records []domain.VectorRecord) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	return s.VectorStore.Upsert(ctx, ns, records)
}

func (s *failingStore) Query(ctx context.Context, ns string, vec []float32, topK int, f domain.Filter) ([]driven.VectorMatch, error) {
	s.lastTopK = topK
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.VectorStore.Query(ctx, ns, vec, topK, f)
}

// staticStore returns fixed matches regardless of the query.
type staticStore struct {
	failingStore
	matches []driven.VectorMatch
}

func (s *staticStore) Query(_ context.Context, _ string, _ []float32, topK int, _ domain.Filter) ([]driven.VectorMatch, error) {
	s.lastTopK = topK
	if len(s.matches) > topK {
		return s.matches[:topK], nil
	}
	return s.matches, nil
}

// --- Harness ---

type harness struct {
	orch      *RAGOrchestrator
	embedder  *keywordEmbedder
	store     *failingStore
	completer *scriptedCompleter
	pacer     *recordingPacer
	metrics   *recordingMetrics
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		embedder:  newKeywordEmbedder(),
		store:     &failingStore{VectorStore: memory.NewVectorStore(0)},
		completer: &scriptedCompleter{respond: cooperativeModel},
		pacer:     &recordingPacer{},
		metrics:   newRecordingMetrics(),
	}
	h.orch = NewRAGOrchestrator(Deps{
		Chunker:     chunker.New(),
		Embedder:    h.embedder,
		Store:       h.store,
		Planner:     NewQueryPlanner(h.completer),
		Retriever:   NewRetriever(h.embedder, h.store),
		Synthesizer: NewResponseSynthesizer(h.completer, 0),
		Pacer:       h.pacer,
		Metrics:     h.metrics,
		Completer:   h.completer,
	}, cfg)
	require.NoError(t, h.orch.Initialize(context.Background()))
	t.Cleanup(func() { _ = h.orch.Shutdown(context.Background()) })
	return h
}

func doc(id, domainName, content string) domain.Document {
	return domain.Document{
		ID:      id,
		Content: content,
		Metadata: domain.DocumentMetadata{
			Domain:      domainName,
			Source:      "manual",
			ContentType: "article",
		},
	}
}

func float(v float64) *float64 { return &v }

var errBoom = errors.New("boom")
