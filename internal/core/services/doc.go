// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The query path is QueryPlanner, then Retriever, then
// ResponseSynthesizer, composed by RAGOrchestrator together with the
// ingestion path (chunk, embed, upsert).
package services
