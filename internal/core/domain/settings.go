package domain

import "fmt"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or completions.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderHashing is the offline feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderHashing:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies a VectorStore implementation.
type VectorBackend string

// Available vector store backends.
const (
	VectorBackendMemory   VectorBackend = "memory"
	VectorBackendSQLite   VectorBackend = "sqlite"
	VectorBackendPgvector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendSQLite, VectorBackendPgvector:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendMemory:
		return "In-memory (not persisted)"
	case VectorBackendSQLite:
		return "SQLite (local file)"
	case VectorBackendPgvector:
		return "PostgreSQL with pgvector"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds completion provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHashing {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings selects and configures the vector store.
type VectorStoreSettings struct {
	Backend VectorBackend

	// Path is the data directory for the sqlite backend.
	Path string

	// DSN is the PostgreSQL connection string for the pgvector backend.
	DSN string

	// Table is the pgvector table name.
	Table string

	// Dimensions is the embedding vector size. Zero means "ask the
	// embedding provider".
	Dimensions int
}

// ChunkingSettings configures the chunker.
type ChunkingSettings struct {
	MaxChunkSize       int
	OverlapSize        int
	MinChunkSize       int
	PreserveParagraphs bool
	PreserveSentences  bool
}

// RetrievalSettings configures the retriever.
type RetrievalSettings struct {
	DefaultTopK int
	MinScore    float64

	// MaxChunksPerDocument caps matches from one document. Zero disables the cap.
	MaxChunksPerDocument int
}

// SynthesisSettings configures the response synthesizer.
type SynthesisSettings struct {
	MaxTokensPerContext int
}

// IngestionSettings configures batch ingestion backpressure.
type IngestionSettings struct {
	// Concurrency is the number of documents in flight within a batch.
	Concurrency int

	// BatchSize is the number of documents per batch.
	BatchSize int

	// RequestsPerSecond is the token bucket refill rate between batches.
	RequestsPerSecond float64

	// Burst is the token bucket capacity.
	Burst int
}

// ProviderSettings configures the timeout and retry wrapper around
// provider calls.
type ProviderSettings struct {
	MaxAttempts        int
	CallTimeoutSeconds int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorStore VectorStoreSettings
	Chunking    ChunkingSettings
	Retrieval   RetrievalSettings
	Synthesis   SynthesisSettings
	Ingestion   IngestionSettings
	Provider    ProviderSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The offline hashing embedder and the sqlite store work without any
// provider setup; the LLM is left unconfigured until the user sets it.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderHashing,
			Model:    DefaultEmbeddingModels()[AIProviderHashing],
		},
		LLM: LLMSettings{},
		VectorStore: VectorStoreSettings{
			Backend: VectorBackendSQLite,
			Table:   "rag_vectors",
		},
		Chunking: ChunkingSettings{
			MaxChunkSize:       1000,
			OverlapSize:        200,
			MinChunkSize:       100,
			PreserveParagraphs: true,
			PreserveSentences:  true,
		},
		Retrieval: RetrievalSettings{
			DefaultTopK:          DefaultTopK,
			MinScore:             DefaultMinScore,
			MaxChunksPerDocument: DefaultMaxChunksPerDoc,
		},
		Synthesis: SynthesisSettings{
			MaxTokensPerContext: DefaultMaxTokensPerContext,
		},
		Ingestion: IngestionSettings{
			Concurrency:       5,
			BatchSize:         10,
			RequestsPerSecond: 2,
			Burst:             1,
		},
		Provider: ProviderSettings{
			MaxAttempts:        3,
			CallTimeoutSeconds: 30,
		},
	}
}

// Validate checks settings that would break the pipeline.
func (s AppSettings) Validate() error {
	c := s.Chunking
	switch {
	case c.MaxChunkSize <= 0:
		return fmt.Errorf("%w: chunking.max_chunk_size must be positive", ErrInvalidInput)
	case c.OverlapSize < 0 || c.OverlapSize >= c.MaxChunkSize:
		return fmt.Errorf("%w: chunking.overlap_size must be in [0, max_chunk_size)", ErrInvalidInput)
	case c.MinChunkSize < 0 || c.MinChunkSize > c.MaxChunkSize:
		return fmt.Errorf("%w: chunking.min_chunk_size must be in [0, max_chunk_size]", ErrInvalidInput)
	}
	r := s.Retrieval
	switch {
	case r.DefaultTopK < 1 || r.DefaultTopK > MaxTopK:
		return fmt.Errorf("%w: retrieval.default_top_k must be 1-%d", ErrInvalidInput, MaxTopK)
	case r.MinScore < 0 || r.MinScore > 1:
		return fmt.Errorf("%w: retrieval.min_score must be in [0,1]", ErrInvalidInput)
	case r.MaxChunksPerDocument < 0:
		return fmt.Errorf("%w: retrieval.max_chunks_per_document must not be negative", ErrInvalidInput)
	}
	if s.Synthesis.MaxTokensPerContext <= 0 {
		return fmt.Errorf("%w: synthesis.max_tokens_per_context must be positive", ErrInvalidInput)
	}
	i := s.Ingestion
	switch {
	case i.Concurrency < 1 || i.Concurrency > 20:
		return fmt.Errorf("%w: ingestion.concurrency must be 1-20", ErrInvalidInput)
	case i.BatchSize < 1 || i.BatchSize > MaxBatchSize:
		return fmt.Errorf("%w: ingestion.batch_size must be 1-%d", ErrInvalidInput, MaxBatchSize)
	case i.RequestsPerSecond < 0:
		return fmt.Errorf("%w: ingestion.requests_per_second must not be negative", ErrInvalidInput)
	}
	if s.Provider.MaxAttempts < 1 {
		return fmt.Errorf("%w: provider.max_attempts must be at least 1", ErrInvalidInput)
	}
	if !s.VectorStore.Backend.IsValid() {
		return fmt.Errorf("%w: unknown vector_store.backend %q", ErrInvalidInput, s.VectorStore.Backend)
	}
	if s.VectorStore.Backend == VectorBackendPgvector && s.VectorStore.DSN == "" {
		return fmt.Errorf("%w: vector_store.dsn is required for pgvector", ErrInvalidInput)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHashing,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support completions.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// AllVectorBackends returns all vector store backends.
func AllVectorBackends() []VectorBackend {
	return []VectorBackend{
		VectorBackendMemory,
		VectorBackendSQLite,
		VectorBackendPgvector,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHashing: "hashing-512",
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Offline
		"hashing-512": 512,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
