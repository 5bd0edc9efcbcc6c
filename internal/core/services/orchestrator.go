package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure RAGOrchestrator implements the interface.
var _ driving.RAGService = (*RAGOrchestrator)(nil)

type lifecycle int

const (
	stateNew lifecycle = iota
	stateReady
	stateClosed
)

// rateLimitRecorder is implemented by pacers that slow down after a
// provider reports throttling.
type rateLimitRecorder interface {
	RecordRateLimit(after time.Duration)
}

// Deps are the collaborators of a RAGOrchestrator. Pacer, Metrics and
// Completer are optional.
type Deps struct {
	Chunker     driven.Chunker
	Embedder    driven.EmbeddingProvider
	Store       driven.VectorStore
	Planner     driving.QueryPlanner
	Retriever   driving.Retriever
	Synthesizer driving.ResponseSynthesizer
	Pacer       driven.Pacer
	Metrics     driven.PipelineMetrics

	// Completer is only reported in Status and closed on Shutdown.
	Completer driven.CompletionProvider
}

// Config holds the orchestrator's tunables.
type Config struct {
	Retrieval     domain.RetrievalSettings
	Ingestion     domain.IngestionSettings
	VectorBackend string
}

// DefaultConfig returns the configuration of domain.DefaultAppSettings.
func DefaultConfig() Config {
	return ConfigFromSettings(domain.DefaultAppSettings())
}

// ConfigFromSettings extracts orchestrator configuration from settings.
func ConfigFromSettings(s domain.AppSettings) Config {
	return Config{
		Retrieval:     s.Retrieval,
		Ingestion:     s.Ingestion,
		VectorBackend: s.VectorStore.Backend.String(),
	}
}

// RAGOrchestrator composes chunking, embedding, storage, planning,
// retrieval and synthesis into document lifecycle and query operations.
// Operations run concurrently; Shutdown waits for those in flight.
type RAGOrchestrator struct {
	deps Deps
	cfg  Config

	mu    sync.RWMutex
	state lifecycle
}

// NewRAGOrchestrator creates an orchestrator. Call Initialize before use.
func NewRAGOrchestrator(deps Deps, cfg Config) *RAGOrchestrator {
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if cfg.Retrieval.DefaultTopK <= 0 {
		cfg.Retrieval.DefaultTopK = domain.DefaultTopK
	}
	if cfg.Ingestion.Concurrency <= 0 {
		cfg.Ingestion.Concurrency = 5
	}
	if cfg.Ingestion.BatchSize <= 0 {
		cfg.Ingestion.BatchSize = 10
	}
	return &RAGOrchestrator{deps: deps, cfg: cfg}
}

// Initialize verifies the embedder and store are reachable and marks the
// orchestrator ready. Calling it again while ready is a no-op.
func (o *RAGOrchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case stateReady:
		return nil
	case stateClosed:
		return fmt.Errorf("%w: orchestrator has been shut down", domain.ErrNotReady)
	}

	if o.deps.Chunker == nil || o.deps.Embedder == nil || o.deps.Store == nil ||
		o.deps.Planner == nil || o.deps.Retriever == nil || o.deps.Synthesizer == nil {
		return fmt.Errorf("%w: orchestrator is missing a collaborator", domain.ErrInvalidInput)
	}

	logger.Section("Pipeline Initialisation")
	if err := o.deps.Embedder.Ping(ctx); err != nil {
		return fmt.Errorf("embedding provider %s: %w", o.deps.Embedder.ModelName(), err)
	}
	if err := o.deps.Store.Ping(ctx); err != nil {
		return fmt.Errorf("vector store: %w", err)
	}

	o.state = stateReady
	logger.Info("Pipeline ready: embedder=%s (%d dims), chunker=%s, backend=%s",
		o.deps.Embedder.ModelName(), o.deps.Embedder.Dimensions(), o.deps.Chunker.Name(), o.cfg.VectorBackend)
	return nil
}

// Shutdown waits for in-flight operations and closes the collaborators.
func (o *RAGOrchestrator) Shutdown(_ context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == stateClosed {
		return nil
	}
	o.state = stateClosed

	var errs []error
	if o.deps.Embedder != nil {
		errs = append(errs, o.deps.Embedder.Close())
	}
	if o.deps.Completer != nil {
		errs = append(errs, o.deps.Completer.Close())
	}
	if o.deps.Store != nil {
		errs = append(errs, o.deps.Store.Close())
	}
	logger.Info("Pipeline shut down")
	return errors.Join(errs...)
}

// acquire holds the orchestrator open for one operation.
func (o *RAGOrchestrator) acquire() (func(), error) {
	o.mu.RLock()
	if o.state != stateReady {
		o.mu.RUnlock()
		return nil, domain.ErrNotReady
	}
	return o.mu.RUnlock, nil
}

// AddDocument chunks, embeds and upserts a document. Re-adding an existing
// id replaces its records and reports StatusUpdated.
func (o *RAGOrchestrator) AddDocument(ctx context.Context, doc domain.Document) (domain.DocumentResult, error) {
	release, err := o.acquire()
	if err != nil {
		return domain.DocumentResult{}, err
	}
	defer release()

	return o.ingest(ctx, doc, false)
}

// UpdateDocument replaces every record of the document with ones built
// from the new content and metadata.
func (o *RAGOrchestrator) UpdateDocument(
	ctx context.Context, id, content string, metadata domain.DocumentMetadata,
) (domain.DocumentResult, error) {
	release, err := o.acquire()
	if err != nil {
		return domain.DocumentResult{}, err
	}
	defer release()

	return o.ingest(ctx, domain.Document{ID: id, Content: content, Metadata: metadata}, true)
}

// RemoveDocument deletes every record of the document in the domain.
// Removing an unknown document succeeds with a zero chunk count.
func (o *RAGOrchestrator) RemoveDocument(ctx context.Context, id, domainName string) (domain.DocumentResult, error) {
	release, err := o.acquire()
	if err != nil {
		return domain.DocumentResult{}, err
	}
	defer release()

	if strings.TrimSpace(id) == "" || strings.TrimSpace(domainName) == "" {
		return domain.DocumentResult{}, fmt.Errorf("%w: document id and domain are required", domain.ErrInvalidInput)
	}

	ctx, span := tracer.Start(ctx, "rag.remove", trace.WithAttributes(
		attribute.String("rag.document_id", id),
		attribute.String("rag.domain", domainName),
	))
	removed, err := o.deps.Store.Delete(ctx, domainName, driven.DeleteRequest{DocumentID: id})
	endSpan(span, err)
	if err != nil {
		err = asStoreError(err, "delete", domainName)
		logger.Warn("Remove %s from %s failed: %v", id, domainName, err)
		return failedResult(id, err), err
	}

	o.deps.Metrics.DocumentProcessed(domainName, string(domain.StatusRemoved))
	logger.Info("Removed document %s from %s (%d records)", id, domainName, removed)
	return domain.DocumentResult{DocumentID: id, Status: domain.StatusRemoved, ChunkCount: removed}, nil
}

// BatchAddDocuments ingests documents in batches of Ingestion.BatchSize,
// at most Ingestion.Concurrency at a time, waiting on the pacer between
// batches. Per-document failures are reported in the result; an error is
// returned only for an invalid batch or when ctx ends while pacing.
func (o *RAGOrchestrator) BatchAddDocuments(ctx context.Context, docs []domain.Document) (domain.BatchResult, error) {
	release, err := o.acquire()
	if err != nil {
		return domain.BatchResult{}, err
	}
	defer release()

	if err := domain.ValidateBatchSize(len(docs)); err != nil {
		return domain.BatchResult{}, err
	}

	logger.Section("Batch Ingestion")
	logger.Info("Ingesting %d documents (batch size %d, concurrency %d)",
		len(docs), o.cfg.Ingestion.BatchSize, o.cfg.Ingestion.Concurrency)

	results := make([]domain.DocumentResult, len(docs))
	size := o.cfg.Ingestion.BatchSize
	var paceErr error

	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))

		if start > 0 && o.deps.Pacer != nil {
			if err := o.deps.Pacer.Wait(ctx); err != nil {
				paceErr = fmt.Errorf("batch paused at document %d: %w", start, err)
				for i := start; i < len(docs); i++ {
					results[i] = failedResult(docs[i].ID, err)
				}
				break
			}
		}

		var g errgroup.Group
		g.SetLimit(o.cfg.Ingestion.Concurrency)
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = o.ingestBatchItem(ctx, docs[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	batch := domain.BatchResult{Total: len(docs), Results: results}
	for _, r := range results {
		if r.Failed() {
			batch.Failed++
		} else {
			batch.Successful++
		}
	}
	logger.Info("Batch complete: %d succeeded, %d failed", batch.Successful, batch.Failed)
	return batch, paceErr
}

func (o *RAGOrchestrator) ingestBatchItem(ctx context.Context, doc domain.Document) domain.DocumentResult {
	res, err := o.ingest(ctx, doc, false)
	if errors.Is(err, domain.ErrRateLimited) {
		if rec, ok := o.deps.Pacer.(rateLimitRecorder); ok {
			rec.RecordRateLimit(0)
		}
	}
	return res
}

// ingest runs the add path with tracing and metrics. On failure the
// returned result is a failed DocumentResult alongside the error.
func (o *RAGOrchestrator) ingest(ctx context.Context, doc domain.Document, update bool) (domain.DocumentResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "rag.ingest", trace.WithAttributes(
		attribute.String("rag.document_id", doc.ID),
		attribute.String("rag.domain", doc.Metadata.Domain),
	))

	res, err := o.ingestDocument(ctx, doc, update)
	endSpan(span, err)
	o.deps.Metrics.ObserveStage(driven.StageIngest, time.Since(start), err)

	if err != nil {
		logger.Warn("Ingest %s failed: %v", doc.ID, err)
		res = failedResult(doc.ID, err)
	} else {
		logger.Debug("Ingested %s into %s: %d chunks, %s", doc.ID, doc.Metadata.Domain, res.ChunkCount, res.Status)
	}
	o.deps.Metrics.DocumentProcessed(doc.Metadata.Domain, string(res.Status))
	return res, err
}

// ingestDocument deletes the document's previous records only after its
// new vectors exist, so a failed chunk or embed leaves the old ones intact.
func (o *RAGOrchestrator) ingestDocument(ctx context.Context, doc domain.Document, update bool) (domain.DocumentResult, error) {
	if err := domain.ValidateDocumentEnvelope(doc); err != nil {
		return domain.DocumentResult{}, err
	}

	chunks, err := o.deps.Chunker.Chunk(ctx, doc.ID, doc.Content)
	if err != nil {
		return domain.DocumentResult{}, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := o.deps.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return domain.DocumentResult{}, o.asProviderError(err)
	}
	if len(vectors) != len(chunks) {
		return domain.DocumentResult{}, o.asProviderError(
			fmt.Errorf("returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	records := make([]domain.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.NewVectorRecord(doc, c, vectors[i])
	}

	namespace := doc.Metadata.Domain
	if update && len(vectors) > 0 {
		if err := o.rejectDomainMove(ctx, doc.ID, namespace, vectors[0]); err != nil {
			return domain.DocumentResult{}, err
		}
	}
	replaced, err := o.deps.Store.Delete(ctx, namespace, driven.DeleteRequest{DocumentID: doc.ID})
	if err != nil {
		return domain.DocumentResult{}, asStoreError(err, "delete", namespace)
	}
	if err := o.deps.Store.Upsert(ctx, namespace, records); err != nil {
		return domain.DocumentResult{}, asStoreError(err, "upsert", namespace)
	}

	status := domain.StatusAdded
	if update || replaced > 0 {
		status = domain.StatusUpdated
	}
	return domain.DocumentResult{DocumentID: doc.ID, Status: status, ChunkCount: len(chunks)}, nil
}

// rejectDomainMove fails when the document already has records in a
// domain other than namespace. Moving a document between domains is a
// remove followed by an add.
func (o *RAGOrchestrator) rejectDomainMove(ctx context.Context, id, namespace string, vector []float32) error {
	stats, err := o.deps.Store.Stats(ctx)
	if err != nil {
		return asStoreError(err, "stats", namespace)
	}
	byID := domain.Filter{domain.MetaDocumentID: {Equals: id}}
	for other := range stats.Namespaces {
		if other == namespace {
			continue
		}
		found, err := o.deps.Store.Query(ctx, other, vector, 1, byID)
		if err != nil {
			return asStoreError(err, "query", other)
		}
		if len(found) > 0 {
			return fmt.Errorf("%w: document %s belongs to domain %q; remove it there before adding it to %q",
				domain.ErrInvalidInput, id, other, namespace)
		}
	}
	return nil
}

// Query plans, retrieves and synthesizes an answer. Empty retrieval still
// reaches the synthesizer, which answers that nothing was found.
func (o *RAGOrchestrator) Query(
	ctx context.Context, query, domainName string, opts domain.QueryOptions,
) (result *domain.RAGResult, err error) {
	release, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := domain.ValidateQuery(query, domainName, opts); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "rag.query", trace.WithAttributes(attribute.String("rag.domain", domainName)))
	defer func() { endSpan(span, err) }()

	logger.Section("Query")
	logger.Debug("Query: %q domain=%s", query, domainName)

	start := time.Now()
	var warnings []string

	stageStart := time.Now()
	plan := o.deps.Planner.Plan(ctx, query, domainName)
	planning := time.Since(stageStart)
	o.deps.Metrics.ObserveStage(driven.StagePlanning, planning, nil)
	if plan.Degraded {
		warnings = append(warnings, domain.WarningPlanningDegraded)
	}
	plan = scopePlan(plan, query, domainName)

	stageStart = time.Now()
	matches, err := o.deps.Retriever.Retrieve(ctx, plan, o.retrievalOptions(opts))
	retrieval := time.Since(stageStart)
	o.deps.Metrics.ObserveStage(driven.StageRetrieval, retrieval, err)
	if err != nil {
		logger.Warn("Retrieval failed: %v", err)
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(matches) == 0 {
		logger.Info("%v for %q in %s", domain.ErrRetrievalEmpty, query, domainName)
		warnings = append(warnings, domain.WarningRetrievalEmpty)
		matches = []domain.RetrievalMatch{}
	}

	stageStart = time.Now()
	synthesis, err := o.deps.Synthesizer.Synthesize(ctx, query, plan, matches)
	synthesisTime := time.Since(stageStart)
	o.deps.Metrics.ObserveStage(driven.StageSynthesis, synthesisTime, err)
	if err != nil {
		logger.Warn("Synthesis failed: %v", err)
		return nil, err
	}
	if synthesis.Extractive {
		warnings = append(warnings, domain.WarningExtractiveAnswer)
	}

	result = &domain.RAGResult{
		Answer:           synthesis.Answer,
		Sources:          matches,
		Confidence:       synthesis.Confidence,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Metadata: domain.ResultMetadata{
			OriginalQuery: query,
			Plan:          plan,
			TotalMatches:  len(matches),
			Timings: domain.QueryTimings{
				PlanningMs:  planning.Milliseconds(),
				RetrievalMs: retrieval.Milliseconds(),
				SynthesisMs: synthesisTime.Milliseconds(),
			},
			Warnings: warnings,
		},
	}

	o.deps.Metrics.QueryAnswered(domainName, result.Confidence, len(matches))
	span.SetAttributes(
		attribute.Int("rag.sources", len(matches)),
		attribute.Float64("rag.confidence", result.Confidence),
	)
	logger.Info("Answered in %dms: %d sources, confidence %.2f", result.ProcessingTimeMs, len(matches), result.Confidence)
	return result, nil
}

// scopePlan guarantees the plan is confined to domainName whatever
// planner produced it.
func scopePlan(plan domain.QueryPlan, query, domainName string) domain.QueryPlan {
	if strings.TrimSpace(plan.SemanticQuery) == "" {
		plan.SemanticQuery = query
	}
	if plan.Domain() != domainName || plan.Filters[domain.MetaDomain].IsSet() {
		plan.Filters = plan.Filters.Clone()
		plan.Filters[domain.MetaDomain] = domain.Eq(domainName)
	}
	return plan
}

func (o *RAGOrchestrator) retrievalOptions(opts domain.QueryOptions) domain.RetrievalOptions {
	ro := domain.RetrievalOptions{
		TopK:           o.cfg.Retrieval.DefaultTopK,
		MinScore:       o.cfg.Retrieval.MinScore,
		MaxPerDocument: o.cfg.Retrieval.MaxChunksPerDocument,
	}
	if opts.TopK > 0 {
		ro.TopK = opts.TopK
	}
	if opts.MinScore != nil {
		ro.MinScore = *opts.MinScore
	}
	if opts.MaxPerDocument != nil {
		ro.MaxPerDocument = *opts.MaxPerDocument
	}
	return ro
}

// Status reports readiness, models and per-domain document counts.
// It does not fail when the orchestrator is not ready.
func (o *RAGOrchestrator) Status(ctx context.Context) (*domain.Status, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	status := &domain.Status{
		IsReady:       o.state == stateReady,
		Namespaces:    map[string]int{},
		VectorBackend: o.cfg.VectorBackend,
	}
	if o.deps.Embedder != nil {
		status.EmbeddingModel = o.deps.Embedder.ModelName()
		status.VectorDimensions = o.deps.Embedder.Dimensions()
	}
	if o.deps.Completer != nil {
		status.CompletionModel = o.deps.Completer.ModelName()
	}
	if !status.IsReady {
		return status, nil
	}

	stats, err := o.deps.Store.Stats(ctx)
	if err != nil {
		return nil, asStoreError(err, "stats", "")
	}
	for ns, s := range stats.Namespaces {
		status.Namespaces[ns] = s.Documents
	}
	status.DocumentCount = stats.DocumentCount()
	if stats.Dimensions > 0 {
		status.VectorDimensions = stats.Dimensions
	}
	return status, nil
}

// asProviderError gives embedding failures the provider kind even when
// the embedder is not wrapped for retries.
func (o *RAGOrchestrator) asProviderError(err error) error {
	var provErr *domain.ProviderError
	if errors.As(err, &provErr) || errors.Is(err, context.Canceled) {
		return err
	}
	return &domain.ProviderError{Provider: o.deps.Embedder.ModelName(), Op: "embed_batch", Attempts: 1, Err: err}
}

func asStoreError(err error, op, namespace string) error {
	var storeErr *domain.VectorStoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &domain.VectorStoreError{Op: op, Namespace: namespace, Err: err}
}

func failedResult(id string, err error) domain.DocumentResult {
	return domain.DocumentResult{
		DocumentID: id,
		Status:     domain.StatusFailed,
		ErrorKind:  domain.KindOf(err),
		Error:      err.Error(),
	}
}

type noopMetrics struct{}

func (noopMetrics) ObserveStage(string, time.Duration, error) {}
func (noopMetrics) DocumentProcessed(string, string)          {}
func (noopMetrics) QueryAnswered(string, float64, int)        {}
