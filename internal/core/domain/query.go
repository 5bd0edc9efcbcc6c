package domain

// Default query-time parameters.
const (
	DefaultTopK                = 5
	DefaultMinScore            = 0.7
	DefaultMaxChunksPerDoc     = 2
	DefaultMaxTokensPerContext = 4000

	// DegradedPlanningConfidence is reported when the planner falls back
	// to the raw query.
	DegradedPlanningConfidence = 0.5
)

// NoInformationAnswer is returned when nothing relevant was retrieved
// and the model did not say so itself.
const NoInformationAnswer = "No relevant information was found in the knowledge base to answer this question."

// QueryPlan is the planner's rewrite of a raw user query.
type QueryPlan struct {
	// SemanticQuery is the text that gets embedded for retrieval.
	SemanticQuery string `json:"semanticQuery"`

	// Filters are metadata predicates pushed down to the vector store.
	// The domain predicate is always present.
	Filters Filter `json:"filters"`

	// PlanningConfidence is in [0,1].
	PlanningConfidence float64 `json:"planningConfidence"`

	// Degraded is true when the plan is the fallback plan.
	Degraded bool `json:"degraded"`
}

// FallbackPlan is the plan used when planning output cannot be used.
func FallbackPlan(query, domain string) QueryPlan {
	return QueryPlan{
		SemanticQuery:      query,
		Filters:            Filter{MetaDomain: Eq(domain)},
		PlanningConfidence: DegradedPlanningConfidence,
		Degraded:           true,
	}
}

// Domain returns the plan's domain predicate value.
func (p QueryPlan) Domain() string {
	return p.Filters[MetaDomain].Equals
}

// RetrievalMatch is a chunk returned by retrieval.
type RetrievalMatch struct {
	ChunkID    string         `json:"chunkId"`
	DocumentID string         `json:"documentId"`
	Score      float64        `json:"score"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
}

// Domain returns the domain recorded on the match metadata.
func (m RetrievalMatch) Domain() string {
	d, _ := m.Metadata[MetaDomain].(string)
	return d
}

// QueryOptions tunes a single query. Zero values mean "use the default".
// MaxPerDocument 0 disables the per-document cap for this query.
type QueryOptions struct {
	TopK           int      `json:"topK,omitempty"`
	MinScore       *float64 `json:"minScore,omitempty"`
	MaxPerDocument *int     `json:"maxPerDocument,omitempty"`
}

// RetrievalOptions are the resolved retrieval parameters.
type RetrievalOptions struct {
	TopK           int
	MinScore       float64
	MaxPerDocument int
}

// Synthesis is the output of the response synthesizer.
type Synthesis struct {
	Answer        string
	Confidence    float64
	ContextTokens int
	UsedMatches   int

	// Extractive is true when no completion provider was available and the
	// answer quotes the retrieved passages instead.
	Extractive bool
}

// QueryTimings records per-stage durations in milliseconds.
type QueryTimings struct {
	PlanningMs  int64 `json:"planningMs"`
	RetrievalMs int64 `json:"retrievalMs"`
	SynthesisMs int64 `json:"synthesisMs"`
}

// ResultMetadata describes how a RAGResult was produced.
type ResultMetadata struct {
	OriginalQuery string       `json:"originalQuery"`
	Plan          QueryPlan    `json:"plan"`
	TotalMatches  int          `json:"totalMatches"`
	Timings       QueryTimings `json:"timings"`
	Warnings      []string     `json:"warnings,omitempty"`
}

// RAGResult is the answer to a query.
type RAGResult struct {
	Answer           string           `json:"answer"`
	Sources          []RetrievalMatch `json:"sources"`
	Confidence       float64          `json:"confidence"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
	Metadata         ResultMetadata   `json:"metadata"`
}

// Warnings recorded on ResultMetadata.
const (
	WarningPlanningDegraded = "planning_degraded"
	WarningRetrievalEmpty   = "retrieval_empty"
	WarningExtractiveAnswer = "extractive_answer"
)
