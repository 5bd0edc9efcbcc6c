package ai

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Retry defaults.
const (
	DefaultMaxAttempts     = 3
	DefaultCallTimeout     = 30 * time.Second
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
)

// RetryConfig bounds provider calls.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// CallTimeout bounds each attempt.
	CallTimeout time.Duration

	// InitialInterval and MaxInterval shape the exponential backoff.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// RetryConfigFromSettings builds a RetryConfig from persisted settings.
func RetryConfigFromSettings(s domain.ProviderSettings) RetryConfig {
	return RetryConfig{
		MaxAttempts: s.MaxAttempts,
		CallTimeout: time.Duration(s.CallTimeoutSeconds) * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = DefaultInitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultMaxInterval
	}
	return c
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrProviderRejected),
		errors.Is(err, domain.ErrProviderUnavailable):
		return false
	default:
		return true
	}
}

// withRetry runs call with a per-attempt timeout and exponential backoff.
// Exhausted or permanent failures come back as *domain.ProviderError.
func withRetry[T any](ctx context.Context, cfg RetryConfig, provider, op string, call func(context.Context) (T, error)) (T, error) {
	var (
		result   T
		attempts int
	)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	operation := func() error {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
		defer cancel()

		v, err := call(callCtx)
		if err == nil {
			result = v
			return nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Debug("%s %s attempt %d failed, retrying in %s: %v", provider, op, attempts, wait.Round(time.Millisecond), err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.MaxAttempts-1)), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		var zero T
		return zero, &domain.ProviderError{Provider: provider, Op: op, Attempts: attempts, Err: err}
	}
	return result, nil
}

// Ensure RetryingEmbeddingProvider implements the interface.
var _ driven.EmbeddingProvider = (*RetryingEmbeddingProvider)(nil)

// RetryingEmbeddingProvider wraps an embedding provider with timeouts and retries.
type RetryingEmbeddingProvider struct {
	inner driven.EmbeddingProvider
	name  string
	cfg   RetryConfig
}

// NewRetryingEmbeddingProvider wraps inner. name identifies the provider in errors.
func NewRetryingEmbeddingProvider(inner driven.EmbeddingProvider, name string, cfg RetryConfig) *RetryingEmbeddingProvider {
	return &RetryingEmbeddingProvider{inner: inner, name: name, cfg: cfg.withDefaults()}
}

// Embed embeds a single text.
func (p *RetryingEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return withRetry(ctx, p.cfg, p.name, "embed", func(ctx context.Context) ([]float32, error) {
		return p.inner.Embed(ctx, text)
	})
}

// EmbedBatch embeds texts, retrying the whole batch on failure.
func (p *RetryingEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return withRetry(ctx, p.cfg, p.name, "embed_batch", func(ctx context.Context) ([][]float32, error) {
		return p.inner.EmbedBatch(ctx, texts)
	})
}

// Dimensions returns the wrapped provider's vector size.
func (p *RetryingEmbeddingProvider) Dimensions() int { return p.inner.Dimensions() }

// ModelName returns the wrapped provider's model.
func (p *RetryingEmbeddingProvider) ModelName() string { return p.inner.ModelName() }

// Ping checks the wrapped provider once, bounded by the call timeout.
func (p *RetryingEmbeddingProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.inner.Ping(ctx)
}

// Close closes the wrapped provider.
func (p *RetryingEmbeddingProvider) Close() error { return p.inner.Close() }

// Ensure RetryingCompletionProvider implements the interface.
var _ driven.CompletionProvider = (*RetryingCompletionProvider)(nil)

// RetryingCompletionProvider wraps a completion provider with timeouts and retries.
type RetryingCompletionProvider struct {
	inner driven.CompletionProvider
	name  string
	cfg   RetryConfig
}

// NewRetryingCompletionProvider wraps inner. name identifies the provider in errors.
func NewRetryingCompletionProvider(inner driven.CompletionProvider, name string, cfg RetryConfig) *RetryingCompletionProvider {
	return &RetryingCompletionProvider{inner: inner, name: name, cfg: cfg.withDefaults()}
}

// Complete runs a completion.
func (p *RetryingCompletionProvider) Complete(ctx context.Context, req driven.CompletionRequest) (string, error) {
	return withRetry(ctx, p.cfg, p.name, "complete", func(ctx context.Context) (string, error) {
		return p.inner.Complete(ctx, req)
	})
}

// ModelName returns the wrapped provider's model.
func (p *RetryingCompletionProvider) ModelName() string { return p.inner.ModelName() }

// Ping checks the wrapped provider once, bounded by the call timeout.
func (p *RetryingCompletionProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.inner.Ping(ctx)
}

// Close closes the wrapped provider.
func (p *RetryingCompletionProvider) Close() error { return p.inner.Close() }
