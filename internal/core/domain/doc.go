// Package domain defines the core business entities for sercha-rag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A caller-owned text document with domain metadata
//   - Chunk: A bounded, overlap-padded slice of a document
//   - VectorRecord: A chunk embedding keyed "{docId}_{chunkIndex}"
//   - QueryPlan, RetrievalMatch, RAGResult: The query pipeline values
//   - AppSettings: Provider, store and pipeline configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
