package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAIProvider_IsValid tests all valid and invalid providers
func TestAIProvider_IsValid(t *testing.T) {
	for _, p := range []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderHashing} {
		assert.True(t, p.IsValid(), p)
		assert.NotEqual(t, unknownDescription, p.Description())
	}
	assert.False(t, AIProvider("").IsValid())
	assert.False(t, AIProvider("cohere").IsValid())
	assert.Equal(t, unknownDescription, AIProvider("cohere").Description())
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.False(t, AIProviderHashing.RequiresAPIKey())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: AIProviderHashing}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
	assert.False(t, EmbeddingSettings{}.IsConfigured())
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderHashing}.IsConfigured())
	assert.False(t, LLMSettings{}.IsConfigured())
}

func TestVectorBackend(t *testing.T) {
	for _, b := range AllVectorBackends() {
		assert.True(t, b.IsValid())
		assert.NotEqual(t, unknownDescription, b.Description())
	}
	assert.False(t, VectorBackend("qdrant").IsValid())
}

// TestDefaultAppSettings tests the pipeline defaults
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 1000, s.Chunking.MaxChunkSize)
	assert.Equal(t, 200, s.Chunking.OverlapSize)
	assert.Equal(t, 100, s.Chunking.MinChunkSize)
	assert.Equal(t, 5, s.Retrieval.DefaultTopK)
	assert.Equal(t, 0.7, s.Retrieval.MinScore)
	assert.Equal(t, 2, s.Retrieval.MaxChunksPerDocument)
	assert.Equal(t, 4000, s.Synthesis.MaxTokensPerContext)
	assert.Equal(t, 3, s.Provider.MaxAttempts)
	assert.Equal(t, AIProviderHashing, s.Embedding.Provider)
	assert.Equal(t, VectorBackendSQLite, s.VectorStore.Backend)
	require.NoError(t, s.Validate())
}

func TestAppSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppSettings)
	}{
		{"zero chunk size", func(s *AppSettings) { s.Chunking.MaxChunkSize = 0 }},
		{"overlap equals max", func(s *AppSettings) { s.Chunking.OverlapSize = 1000 }},
		{"min above max", func(s *AppSettings) { s.Chunking.MinChunkSize = 1001 }},
		{"topK too large", func(s *AppSettings) { s.Retrieval.DefaultTopK = 21 }},
		{"min score above one", func(s *AppSettings) { s.Retrieval.MinScore = 1.5 }},
		{"negative diversity cap", func(s *AppSettings) { s.Retrieval.MaxChunksPerDocument = -1 }},
		{"zero context budget", func(s *AppSettings) { s.Synthesis.MaxTokensPerContext = 0 }},
		{"concurrency too high", func(s *AppSettings) { s.Ingestion.Concurrency = 21 }},
		{"batch too large", func(s *AppSettings) { s.Ingestion.BatchSize = 51 }},
		{"zero attempts", func(s *AppSettings) { s.Provider.MaxAttempts = 0 }},
		{"unknown backend", func(s *AppSettings) { s.VectorStore.Backend = "qdrant" }},
		{"pgvector without dsn", func(s *AppSettings) { s.VectorStore.Backend = VectorBackendPgvector }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultAppSettings()
			tt.mutate(&s)
			err := s.Validate()
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestEmbeddingDimensions_DefaultsKnown(t *testing.T) {
	dims := EmbeddingDimensions()
	for _, model := range DefaultEmbeddingModels() {
		assert.Contains(t, dims, model)
	}
}
