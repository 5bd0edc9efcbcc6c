// Package ai provides factory functions for creating AI provider adapters
// and the retry decorators that wrap them.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the providers built from settings.
type InitResult struct {
	Embedder  driven.EmbeddingProvider
	Completer driven.CompletionProvider
	Warnings  []string // Non-fatal issues that caused fallback.
	FellBack  bool     // True if the embedder fell back to hashing.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.Embedder != nil {
		r.Embedder.Close()
	}
	if r.Completer != nil {
		r.Completer.Close()
	}
}

// Init builds retry-wrapped embedding and completion providers.
//
// An embedding provider that cannot be created or reached is replaced by
// the offline hashing embedder. A missing completion provider is replaced
// by one that always reports domain.ErrProviderUnavailable, so planning
// degrades and synthesis fails with a clear error instead of the whole
// pipeline refusing to start.
func Init(ctx context.Context, settings domain.AppSettings) *InitResult {
	result := &InitResult{}
	retry := RetryConfigFromSettings(settings.Provider)

	embedder, err := CreateAndValidateEmbeddingProvider(ctx, &settings.Embedding)
	if err != nil || embedder == nil {
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("embedding provider unavailable, using offline hashing embedder: %v", err))
		}
		embedder = hashing.New(hashing.DefaultDimensions)
		result.FellBack = settings.Embedding.Provider != domain.AIProviderHashing
	}
	result.Embedder = NewRetryingEmbeddingProvider(embedder, providerName(settings.Embedding.Provider, result.FellBack), retry)

	completer, err := CreateCompletionProvider(&settings.LLM)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("completion provider unavailable: %v", err))
		completer = Unconfigured{}
	case completer == nil:
		result.Warnings = append(result.Warnings, "no completion provider configured; run 'sercha-rag settings llm' to set one")
		completer = Unconfigured{}
	default:
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		if err := completer.Ping(pingCtx); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("completion provider unreachable: %v", err))
		}
		cancel()
	}
	result.Completer = NewRetryingCompletionProvider(completer, string(settings.LLM.Provider), retry)

	return result
}

func providerName(p domain.AIProvider, fellBack bool) string {
	if fellBack || p == "" {
		return string(domain.AIProviderHashing)
	}
	return string(p)
}

// CreateAndValidateEmbeddingProvider creates an embedding provider and validates connectivity.
// Returns nil, nil if the provider is not configured.
func CreateAndValidateEmbeddingProvider(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingProvider, error) {
	svc, err := CreateEmbeddingProvider(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-rag settings embedding' to fix", domain.ErrProviderUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'sercha-rag settings embedding' to fix",
			domain.ErrProviderUnavailable, err)
	}
	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a provider and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingProvider(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates a completion configuration by creating a provider and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateCompletionProvider(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingProvider creates the embedding provider selected by settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingProvider(settings *domain.EmbeddingSettings) (driven.EmbeddingProvider, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderHashing:
		return hashing.New(dimensionsFor(settings.Model, hashing.DefaultDimensions)), nil

	case domain.AIProviderOllama:
		return ollamaembed.New(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.New(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateCompletionProvider creates the completion provider selected by settings.
// Returns nil if the provider is not configured.
func CreateCompletionProvider(settings *domain.LLMSettings) (driven.CompletionProvider, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.New(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.New(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.New(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

func dimensionsFor(model string, fallback int) int {
	if dims, ok := domain.EmbeddingDimensions()[model]; ok {
		return dims
	}
	return fallback
}

// Ensure Unconfigured implements the interface.
var _ driven.CompletionProvider = Unconfigured{}

// Unconfigured stands in for a missing completion provider.
type Unconfigured struct{}

// Complete always fails with domain.ErrProviderUnavailable.
func (Unconfigured) Complete(context.Context, driven.CompletionRequest) (string, error) {
	return "", fmt.Errorf("%w: no completion provider configured", domain.ErrProviderUnavailable)
}

// ModelName returns an empty string.
func (Unconfigured) ModelName() string { return "" }

// Ping always fails with domain.ErrProviderUnavailable.
func (Unconfigured) Ping(context.Context) error {
	return fmt.Errorf("%w: no completion provider configured", domain.ErrProviderUnavailable)
}

// Close is a no-op.
func (Unconfigured) Close() error { return nil }
