// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - Chunker: Splits document text into overlapping chunks
//   - EmbeddingProvider: Converts text into fixed-dimension vectors
//   - VectorStore: Namespace-partitioned vector persistence and search
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - CompletionProvider: Without it, planning always falls back to the raw
//     query and synthesis answers with the retrieved context only.
//   - PromptStore: Without it, built-in prompt templates are used.
//   - Pacer: Without it, batches are not throttled.
//   - PipelineMetrics: Without it, nothing is recorded.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
