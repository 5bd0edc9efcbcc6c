package services

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"

	keyStoreBackend    = "vector_store.backend"
	keyStorePath       = "vector_store.path"
	keyStoreDSN        = "vector_store.dsn"
	keyStoreTable      = "vector_store.table"
	keyStoreDimensions = "vector_store.dimensions"

	keyChunkMax        = "chunking.max_chunk_size"
	keyChunkOverlap    = "chunking.overlap_size"
	keyChunkMin        = "chunking.min_chunk_size"
	keyChunkParagraphs = "chunking.preserve_paragraphs"
	keyChunkSentences  = "chunking.preserve_sentences"

	keyTopK        = "retrieval.default_top_k"
	keyMinScore    = "retrieval.min_score"
	keyMaxPerDoc   = "retrieval.max_chunks_per_document"
	keyTokenBudget = "synthesis.max_tokens_per_context"

	keyConcurrency = "ingestion.concurrency"
	keyBatchSize   = "ingestion.batch_size"
	keyRPS         = "ingestion.requests_per_second"
	keyBurst       = "ingestion.burst"

	keyMaxAttempts = "provider.max_attempts"
	keyCallTimeout = "provider.call_timeout_seconds"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings. Keys missing from the
// store take their default values.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		VectorStore: domain.VectorStoreSettings{
			Backend:    domain.VectorBackend(s.getString(keyStoreBackend, d.VectorStore.Backend.String())),
			Path:       s.configStore.GetString(keyStorePath),
			DSN:        s.configStore.GetString(keyStoreDSN),
			Table:      s.getString(keyStoreTable, d.VectorStore.Table),
			Dimensions: s.getInt(keyStoreDimensions, d.VectorStore.Dimensions),
		},
		Chunking: domain.ChunkingSettings{
			MaxChunkSize:       s.getInt(keyChunkMax, d.Chunking.MaxChunkSize),
			OverlapSize:        s.getInt(keyChunkOverlap, d.Chunking.OverlapSize),
			MinChunkSize:       s.getInt(keyChunkMin, d.Chunking.MinChunkSize),
			PreserveParagraphs: s.getBool(keyChunkParagraphs, d.Chunking.PreserveParagraphs),
			PreserveSentences:  s.getBool(keyChunkSentences, d.Chunking.PreserveSentences),
		},
		Retrieval: domain.RetrievalSettings{
			DefaultTopK:          s.getInt(keyTopK, d.Retrieval.DefaultTopK),
			MinScore:             s.getFloat(keyMinScore, d.Retrieval.MinScore),
			MaxChunksPerDocument: s.getInt(keyMaxPerDoc, d.Retrieval.MaxChunksPerDocument),
		},
		Synthesis: domain.SynthesisSettings{
			MaxTokensPerContext: s.getInt(keyTokenBudget, d.Synthesis.MaxTokensPerContext),
		},
		Ingestion: domain.IngestionSettings{
			Concurrency:       s.getInt(keyConcurrency, d.Ingestion.Concurrency),
			BatchSize:         s.getInt(keyBatchSize, d.Ingestion.BatchSize),
			RequestsPerSecond: s.getFloat(keyRPS, d.Ingestion.RequestsPerSecond),
			Burst:             s.getInt(keyBurst, d.Ingestion.Burst),
		},
		Provider: domain.ProviderSettings{
			MaxAttempts:        s.getInt(keyMaxAttempts, d.Provider.MaxAttempts),
			CallTimeoutSeconds: s.getInt(keyCallTimeout, d.Provider.CallTimeoutSeconds),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key string
		val any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyStoreBackend, settings.VectorStore.Backend.String()},
		{keyStorePath, settings.VectorStore.Path},
		{keyStoreDSN, settings.VectorStore.DSN},
		{keyStoreTable, settings.VectorStore.Table},
		{keyStoreDimensions, settings.VectorStore.Dimensions},
		{keyChunkMax, settings.Chunking.MaxChunkSize},
		{keyChunkOverlap, settings.Chunking.OverlapSize},
		{keyChunkMin, settings.Chunking.MinChunkSize},
		{keyChunkParagraphs, settings.Chunking.PreserveParagraphs},
		{keyChunkSentences, settings.Chunking.PreserveSentences},
		{keyTopK, settings.Retrieval.DefaultTopK},
		{keyMinScore, settings.Retrieval.MinScore},
		{keyMaxPerDoc, settings.Retrieval.MaxChunksPerDocument},
		{keyTokenBudget, settings.Synthesis.MaxTokensPerContext},
		{keyConcurrency, settings.Ingestion.Concurrency},
		{keyBatchSize, settings.Ingestion.BatchSize},
		{keyRPS, settings.Ingestion.RequestsPerSecond},
		{keyBurst, settings.Ingestion.Burst},
		{keyMaxAttempts, settings.Provider.MaxAttempts},
		{keyCallTimeout, settings.Provider.CallTimeoutSeconds},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when present so an environment-supplied
	// key never ends up on disk.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}

	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	switch {
	case provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "":
		settings.Embedding.BaseURL = defaultOllamaURL
	case !provider.IsLocal():
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// Stored vectors must match the new model's size
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.VectorStore.Dimensions = d
	} else {
		settings.VectorStore.Dimensions = 0
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() || provider == domain.AIProviderHashing {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetVectorBackend selects the vector store. location is the data
// directory for sqlite and the DSN for pgvector; it is ignored for memory.
func (s *SettingsService) SetVectorBackend(backend domain.VectorBackend, location string) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: invalid vector backend: %s", domain.ErrInvalidInput, backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.VectorStore.Backend = backend
	switch backend {
	case domain.VectorBackendSQLite:
		settings.VectorStore.Path = location
	case domain.VectorBackendPgvector:
		if location == "" && settings.VectorStore.DSN == "" {
			return fmt.Errorf("%w: pgvector requires a connection string", domain.ErrInvalidInput)
		}
		if location != "" {
			settings.VectorStore.DSN = location
		}
	}

	return s.Save(settings)
}

// Validate checks that current settings can run the pipeline.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not fully configured", domain.ErrInvalidInput, settings.Embedding.Provider)
	}
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %q is not fully configured", domain.ErrInvalidInput, settings.LLM.Provider)
	}

	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt treats a stored zero as a real value; some keys use 0 to disable.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
