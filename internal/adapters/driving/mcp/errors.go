// Package mcp provides an MCP (Model Context Protocol) server adapter for
// the RAG pipeline. It lets AI assistants add documents to a knowledge
// base and ask grounded questions about it.
package mcp

import "errors"

// ErrMissingRAGService is returned when the RAG service is not provided.
var ErrMissingRAGService = errors.New("mcp: rag service is required")
