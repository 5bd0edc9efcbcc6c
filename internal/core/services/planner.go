package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure QueryPlanner implements the interfaces.
var (
	_ driving.QueryPlanner    = (*QueryPlanner)(nil)
	_ driven.PromptStoreAware = (*QueryPlanner)(nil)
)

// defaultQueryPlanPrompt is the fallback prompt when no PromptStore is configured.
const defaultQueryPlanPrompt = `Turn the question into a search plan for a knowledge base in the %s domain.
Respond with a JSON object: {"semantic_query": string, "filters": object, "confidence": number between 0 and 1}.
Filters may only use the keys content_type, source, author and tags, each a string or a list of strings.

Question: %s`

const planMaxTokens = 300

// plannableFilters are the metadata keys the planner may constrain.
// The domain key is always set from the request, never from the model.
var plannableFilters = map[string]bool{
	domain.MetaContentType: true,
	domain.MetaSource:      true,
	domain.MetaAuthor:      true,
	domain.MetaTags:        true,
}

// rawPlan is the JSON shape the model is asked to produce.
type rawPlan struct {
	SemanticQuery string                     `json:"semantic_query"`
	Filters       map[string]json.RawMessage `json:"filters"`
	Confidence    *float64                   `json:"confidence"`
}

// QueryPlanner rewrites queries into a semantic query plus filters using a
// completion provider. Any failure yields domain.FallbackPlan.
type QueryPlanner struct {
	completer   driven.CompletionProvider
	promptStore driven.PromptStore
}

// NewQueryPlanner creates a planner. completer may be nil, in which case
// every plan is the fallback plan.
func NewQueryPlanner(completer driven.CompletionProvider) *QueryPlanner {
	return &QueryPlanner{completer: completer}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (p *QueryPlanner) SetPromptStore(store driven.PromptStore) {
	p.promptStore = store
}

// Plan produces a plan for query in domainName.
func (p *QueryPlanner) Plan(ctx context.Context, query, domainName string) domain.QueryPlan {
	ctx, span := tracer.Start(ctx, "rag.plan")
	defer span.End()

	plan, err := p.plan(ctx, query, domainName)
	if err != nil {
		logger.Warn("%v: %v", domain.ErrPlanningDegraded, err)
		plan = domain.FallbackPlan(query, domainName)
	}

	span.SetAttributes(
		attribute.String("rag.domain", domainName),
		attribute.Bool("rag.plan.degraded", plan.Degraded),
		attribute.Float64("rag.plan.confidence", plan.PlanningConfidence),
	)
	logger.Debug("Plan: query=%q filters=%s confidence=%.2f degraded=%t",
		plan.SemanticQuery, plan.Filters, plan.PlanningConfidence, plan.Degraded)
	return plan
}

func (p *QueryPlanner) plan(ctx context.Context, query, domainName string) (domain.QueryPlan, error) {
	if p.completer == nil {
		return domain.QueryPlan{}, fmt.Errorf("no completion provider")
	}

	prompt := fmt.Sprintf(p.loadPrompt(), domainName, query)
	out, err := p.completer.Complete(ctx, driven.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   planMaxTokens,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		return domain.QueryPlan{}, fmt.Errorf("completion: %w", err)
	}

	return parsePlan(out, domainName)
}

// loadPrompt loads the plan prompt, falling back to the default when the
// store is missing or the template does not take exactly two strings.
func (p *QueryPlanner) loadPrompt() string {
	if p.promptStore == nil {
		return defaultQueryPlanPrompt
	}
	prompt, err := p.promptStore.Load(driven.PromptQueryPlan)
	if err != nil || strings.Count(prompt, "%s") != 2 || strings.Count(prompt, "%") != 2 {
		return defaultQueryPlanPrompt
	}
	return prompt
}

// parsePlan validates model output. The domain filter is forced to
// domainName whatever the model said.
func parsePlan(out, domainName string) (domain.QueryPlan, error) {
	obj := extractJSONObject(out)
	if obj == "" {
		return domain.QueryPlan{}, fmt.Errorf("no JSON object in planner output")
	}

	var raw rawPlan
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return domain.QueryPlan{}, fmt.Errorf("parse planner output: %w", err)
	}

	semantic := strings.TrimSpace(raw.SemanticQuery)
	if semantic == "" {
		return domain.QueryPlan{}, fmt.Errorf("planner returned an empty semantic_query")
	}
	if raw.Confidence == nil || *raw.Confidence < 0 || *raw.Confidence > 1 {
		return domain.QueryPlan{}, fmt.Errorf("planner confidence missing or outside [0,1]")
	}

	filters := domain.Filter{domain.MetaDomain: domain.Eq(domainName)}
	for key, value := range raw.Filters {
		if !plannableFilters[key] {
			continue
		}
		if fv, ok := decodeFilterValue(value); ok {
			filters[key] = fv
		}
	}

	return domain.QueryPlan{
		SemanticQuery:      semantic,
		Filters:            filters,
		PlanningConfidence: *raw.Confidence,
	}, nil
}

// decodeFilterValue accepts a non-empty string or a non-empty list of strings.
func decodeFilterValue(raw json.RawMessage) (domain.FilterValue, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return domain.Eq(s), s != ""
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return domain.FilterValue{}, false
	}
	values := make([]string, 0, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	switch len(values) {
	case 0:
		return domain.FilterValue{}, false
	case 1:
		return domain.Eq(values[0]), true
	default:
		return domain.In(values...), true
	}
}

// extractJSONObject strips code fences and surrounding prose, returning
// the outermost {...} span or "".
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
