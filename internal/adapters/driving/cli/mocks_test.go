package cli

import (
	"bytes"
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockRAGService records the arguments of the last call.
type mockRAGService struct {
	err error

	// events receives "add:<id>" and "remove:<id>" when set.
	events chan string

	added    []domain.Document
	batches  [][]domain.Document
	updated  string
	meta     domain.DocumentMetadata
	content  string
	removed  string
	rmDomain string

	query       string
	queryDomain string
	queryOpts   domain.QueryOptions
	result      *domain.RAGResult
	status      *domain.Status
}

func (m *mockRAGService) Initialize(_ context.Context) error { return nil }
func (m *mockRAGService) Shutdown(_ context.Context) error   { return nil }

func (m *mockRAGService) notify(event string) {
	if m.events != nil {
		m.events <- event
	}
}

func (m *mockRAGService) AddDocument(_ context.Context, doc domain.Document) (domain.DocumentResult, error) {
	if m.events != nil {
		m.notify("add:" + doc.ID)
		return domain.DocumentResult{DocumentID: doc.ID, Status: domain.StatusAdded, ChunkCount: 2}, nil
	}
	m.added = append(m.added, doc)
	if m.err != nil {
		return domain.DocumentResult{}, m.err
	}
	return domain.DocumentResult{DocumentID: doc.ID, Status: domain.StatusAdded, ChunkCount: 2}, nil
}

func (m *mockRAGService) BatchAddDocuments(_ context.Context, docs []domain.Document) (domain.BatchResult, error) {
	m.batches = append(m.batches, docs)
	if m.err != nil {
		return domain.BatchResult{}, m.err
	}
	res := domain.BatchResult{Total: len(docs)}
	for _, d := range docs {
		if d.Metadata.Domain == "" {
			res.Failed++
			res.Results = append(res.Results, domain.DocumentResult{
				DocumentID: d.ID, Status: domain.StatusFailed,
				ErrorKind: domain.ErrorKindInvalidInput, Error: "domain is required",
			})
			continue
		}
		res.Successful++
		res.Results = append(res.Results, domain.DocumentResult{DocumentID: d.ID, Status: domain.StatusAdded, ChunkCount: 1})
	}
	return res, nil
}

func (m *mockRAGService) UpdateDocument(
	_ context.Context, id, content string, metadata domain.DocumentMetadata,
) (domain.DocumentResult, error) {
	m.updated = id
	m.content = content
	m.meta = metadata
	if m.err != nil {
		return domain.DocumentResult{}, m.err
	}
	return domain.DocumentResult{DocumentID: id, Status: domain.StatusUpdated, ChunkCount: 4}, nil
}

func (m *mockRAGService) RemoveDocument(_ context.Context, id, domainName string) (domain.DocumentResult, error) {
	if m.events != nil {
		m.notify("remove:" + id)
		return domain.DocumentResult{DocumentID: id, Status: domain.StatusRemoved, ChunkCount: 3}, nil
	}
	m.removed = id
	m.rmDomain = domainName
	if m.err != nil {
		return domain.DocumentResult{}, m.err
	}
	return domain.DocumentResult{DocumentID: id, Status: domain.StatusRemoved, ChunkCount: 3}, nil
}

func (m *mockRAGService) Query(
	_ context.Context, query, domainName string, opts domain.QueryOptions,
) (*domain.RAGResult, error) {
	m.query = query
	m.queryDomain = domainName
	m.queryOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.RAGResult{
		Answer:     "Interval training alternates hard and easy efforts [1].",
		Confidence: 0.82,
		Sources: []domain.RetrievalMatch{
			{ChunkID: "hiit_chunk_0", DocumentID: "hiit", Score: 0.91,
				Metadata: map[string]any{domain.MetaTitle: "HIIT Basics"}},
			{ChunkID: "run_chunk_1", DocumentID: "run", Score: 0.64},
		},
		Metadata: domain.ResultMetadata{OriginalQuery: query},
	}, nil
}

func (m *mockRAGService) Status(_ context.Context) (*domain.Status, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.status != nil {
		return m.status, nil
	}
	return &domain.Status{
		IsReady:          true,
		DocumentCount:    3,
		Namespaces:       map[string]int{"fitness": 2, "cooking": 1},
		VectorDimensions: 512,
		EmbeddingModel:   "hashing-512",
		VectorBackend:    "sqlite",
	}, nil
}

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding = domain.EmbeddingSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM = domain.LLMSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetVectorBackend(backend domain.VectorBackend, location string) error {
	m.settings.VectorStore.Backend = backend
	switch backend {
	case domain.VectorBackendSQLite:
		m.settings.VectorStore.Path = location
	case domain.VectorBackendPgvector:
		if location == "" {
			return errors.New("dsn is required")
		}
		m.settings.VectorStore.DSN = location
	case domain.VectorBackendMemory:
	}
	return nil
}

func (m *mockSettingsService) Validate() error                 { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error  { return m.pingErr }
func (m *mockSettingsService) ValidateLLMConfig() error        { return m.pingErr }

type mockPromptFiles struct {
	prompts map[string]string
}

func (m *mockPromptFiles) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("not found")
	}
	return p, nil
}

func (m *mockPromptFiles) Path(name string) string { return "/cfg/prompts/" + name + ".txt" }
func (m *mockPromptFiles) Dir() string             { return "/cfg/prompts" }

// setupTestServices installs mocks, resets flag variables and returns
// the mocks plus a cleanup function.
func setupTestServices() (*mockRAGService, *mockSettingsService, func()) {
	rag := &mockRAGService{}
	settings := newMockSettingsService()

	ragService = rag
	settingsService = settings
	promptFiles = &mockPromptFiles{prompts: map[string]string{
		"query_plan": "plan for %s: %s",
		"synthesize": "answer from the context",
	}}
	extractor = nil
	metricsHandler = nil
	openPipeline = nil
	closePipeline = nil
	resetFlags()

	return rag, settings, func() {
		ragService = nil
		settingsService = nil
		promptFiles = nil
		extractor = nil
		openPipeline = nil
		closePipeline = nil
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}
}

func resetFlags() {
	docID, docDomain, docSource, docContentType = "", "", "cli", ""
	docTitle, docAuthor, docTags, docRaw, docJSON = "", "", nil, false, false
	batchDomain, batchSource, batchJSON = "", "cli", false
	queryDomain, queryTopK, queryMinScore, queryMaxPer, queryJSON = "", 0, -1, -1, false
	statusJSON = false
	syncDomain, syncSource, syncWatch, syncJSON = "", "filesystem", false, false
	tuiDomain = ""
	serveAddr = ":8080"
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	return executeContext(context.Background(), args...)
}

// executeContext runs the root command under ctx. Cobra hands a
// subcommand the root context only while its own is unset, so every
// command is given ctx first; otherwise a context left by an earlier
// run would stick.
func executeContext(ctx context.Context, args ...string) (string, error) {
	setContextTree(rootCmd, ctx)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func setContextTree(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, sub := range cmd.Commands() {
		setContextTree(sub, ctx)
	}
}
