package tui

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// AnswerReceived carries the result of a query back to the model.
type AnswerReceived struct {
	Result *domain.RAGResult
	Err    error
}

// StatusLoaded carries a store status snapshot back to the model.
type StatusLoaded struct {
	Status *domain.Status
	Err    error
}
