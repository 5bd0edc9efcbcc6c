package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptQueryPlan asks for a JSON query plan.
	// The template expects %s placeholders for the domain and the query.
	PromptQueryPlan = "query_plan"

	// PromptSynthesize is the system prompt for answer synthesis.
	// This prompt has no format placeholders.
	PromptSynthesize = "synthesize"
)

// PromptNames lists every prompt the application loads.
func PromptNames() []string {
	return []string{PromptQueryPlan, PromptSynthesize}
}

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
