package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure ResponseSynthesizer implements the interfaces.
var (
	_ driving.ResponseSynthesizer = (*ResponseSynthesizer)(nil)
	_ driven.PromptStoreAware     = (*ResponseSynthesizer)(nil)
)

// defaultSynthesizePrompt is the fallback system prompt when no PromptStore is configured.
const defaultSynthesizePrompt = `You answer questions using only the numbered context passages provided.
Cite the passages you use as [n]. If the context does not contain the answer,
say that no relevant information was found in the knowledge base. Do not invent facts.`

const (
	synthesisMaxTokens   = 1024
	synthesisTemperature = 0.2

	// degradedPenalty scales confidence when the plan fell back to the raw query.
	degradedPenalty = 0.9

	// extractivePassages is how many passages an extractive answer quotes.
	extractivePassages = 3
)

// noInformationMarkers are phrases that show a model answer already says
// nothing relevant was found.
var noInformationMarkers = []string{
	"no relevant information",
	"no information",
	"not contain",
	"doesn't contain",
	"does not contain",
	"not found",
}

// ResponseSynthesizer builds a bounded context from retrieved matches and
// asks a completion provider for a cited answer.
type ResponseSynthesizer struct {
	completer   driven.CompletionProvider
	maxTokens   int
	promptStore driven.PromptStore
}

// NewResponseSynthesizer creates a synthesizer with a context budget of
// maxTokensPerContext estimated tokens. A non-positive budget uses the default.
func NewResponseSynthesizer(completer driven.CompletionProvider, maxTokensPerContext int) *ResponseSynthesizer {
	if maxTokensPerContext <= 0 {
		maxTokensPerContext = domain.DefaultMaxTokensPerContext
	}
	return &ResponseSynthesizer{completer: completer, maxTokens: maxTokensPerContext}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *ResponseSynthesizer) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Synthesize answers query from matches, which must be sorted by score descending.
func (s *ResponseSynthesizer) Synthesize(
	ctx context.Context, query string, plan domain.QueryPlan, matches []domain.RetrievalMatch,
) (domain.Synthesis, error) {
	ctx, span := tracer.Start(ctx, "rag.synthesize")
	var err error
	defer func() { endSpan(span, err) }()

	passages, tokens := fitContext(matches, s.maxTokens)
	result := domain.Synthesis{
		Confidence:    confidence(matches, plan.Degraded),
		ContextTokens: tokens,
		UsedMatches:   len(passages),
	}

	answer, err := s.complete(ctx, query, passages)
	switch {
	case err == nil:
		result.Answer = answer
	case errors.Is(err, domain.ErrProviderUnavailable):
		logger.Warn("Completion provider unavailable, answering extractively: %v", err)
		err = nil
		result.Answer = extractiveAnswer(passages)
		result.Extractive = true
	default:
		err = &domain.SynthesisError{Err: err}
		return domain.Synthesis{}, err
	}

	if len(passages) == 0 && !mentionsNoInformation(result.Answer) {
		result.Answer = domain.NoInformationAnswer
	}

	span.SetAttributes(
		attribute.Int("rag.context_tokens", result.ContextTokens),
		attribute.Int("rag.used_matches", result.UsedMatches),
		attribute.Float64("rag.confidence", result.Confidence),
	)
	logger.Debug("Synthesize: passages=%d tokens=%d confidence=%.2f extractive=%t",
		result.UsedMatches, result.ContextTokens, result.Confidence, result.Extractive)
	return result, nil
}

func (s *ResponseSynthesizer) complete(ctx context.Context, query string, passages []string) (string, error) {
	if s.completer == nil {
		return "", fmt.Errorf("%w: no completion provider", domain.ErrProviderUnavailable)
	}
	answer, err := s.completer.Complete(ctx, driven.CompletionRequest{
		System:      s.loadPrompt(),
		Prompt:      buildSynthesisPrompt(query, passages),
		MaxTokens:   synthesisMaxTokens,
		Temperature: synthesisTemperature,
	})
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.New("completion returned an empty answer")
	}
	return answer, nil
}

func (s *ResponseSynthesizer) loadPrompt() string {
	if s.promptStore == nil {
		return defaultSynthesizePrompt
	}
	prompt, err := s.promptStore.Load(driven.PromptSynthesize)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return defaultSynthesizePrompt
	}
	return prompt
}

// fitContext takes match texts in order until the token budget is spent.
// The first text that does not fit is cut to the remaining budget and
// everything after it is dropped.
func fitContext(matches []domain.RetrievalMatch, budget int) ([]string, int) {
	passages := make([]string, 0, len(matches))
	used := 0
	for _, m := range matches {
		remaining := budget - used
		if remaining <= 0 {
			break
		}
		n := domain.EstimateTokens(m.Text)
		if n <= remaining {
			passages = append(passages, m.Text)
			used += n
			continue
		}
		cut := truncateRunes(m.Text, remaining*4)
		if strings.TrimSpace(cut) != "" {
			passages = append(passages, cut)
			used += domain.EstimateTokens(cut)
		}
		break
	}
	return passages, used
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func buildSynthesisPrompt(query string, passages []string) string {
	var b strings.Builder
	if len(passages) == 0 {
		b.WriteString("Context: (no relevant passages were found)\n\n")
	} else {
		b.WriteString("Context:\n")
		for i, p := range passages {
			fmt.Fprintf(&b, "[%d] %s\n\n", i+1, strings.TrimSpace(p))
		}
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}

// confidence blends the mean retrieval score with how many matches
// support the answer, saturating at three.
func confidence(matches []domain.RetrievalMatch, degraded bool) float64 {
	if len(matches) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range matches {
		sum += m.Score
	}
	avg := sum / float64(len(matches))
	coverage := float64(len(matches)) / 3
	if coverage > 1 {
		coverage = 1
	}
	c := 0.6*avg + 0.4*coverage
	if degraded {
		c *= degradedPenalty
	}
	return clamp01(c)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// extractiveAnswer quotes the top passages when no model can write an answer.
func extractiveAnswer(passages []string) string {
	if len(passages) == 0 {
		return domain.NoInformationAnswer
	}
	if len(passages) > extractivePassages {
		passages = passages[:extractivePassages]
	}
	var b strings.Builder
	b.WriteString("No language model is configured. The most relevant passages are:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, strings.TrimSpace(p))
	}
	return b.String()
}

func mentionsNoInformation(answer string) bool {
	lower := strings.ToLower(answer)
	for _, marker := range noInformationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
