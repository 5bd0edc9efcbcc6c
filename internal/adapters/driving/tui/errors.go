package tui

import "errors"

// ErrMissingRAGService is returned when the RAG service is not provided.
var ErrMissingRAGService = errors.New("tui: rag service is required")

// ErrEmptyQuestion is shown when enter is pressed without a question or domain.
var ErrEmptyQuestion = errors.New("enter a domain and a question")
