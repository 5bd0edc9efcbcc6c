package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// mockRAGService is a mock implementation of driving.RAGService.
type mockRAGService struct {
	result      domain.DocumentResult
	batchResult domain.BatchResult
	ragResult   *domain.RAGResult
	status      *domain.Status
	err         error

	// Recorded arguments.
	lastDoc      domain.Document
	lastBatch    []domain.Document
	lastID       string
	lastContent  string
	lastMetadata domain.DocumentMetadata
	lastDomain   string
	lastQuery    string
	lastOpts     domain.QueryOptions
}

var _ driving.RAGService = (*mockRAGService)(nil)

func (m *mockRAGService) Initialize(_ context.Context) error { return nil }
func (m *mockRAGService) Shutdown(_ context.Context) error   { return nil }

func (m *mockRAGService) AddDocument(_ context.Context, doc domain.Document) (domain.DocumentResult, error) {
	m.lastDoc = doc
	return m.result, m.err
}

func (m *mockRAGService) BatchAddDocuments(_ context.Context, docs []domain.Document) (domain.BatchResult, error) {
	m.lastBatch = docs
	return m.batchResult, m.err
}

func (m *mockRAGService) UpdateDocument(
	_ context.Context,
	id, content string,
	metadata domain.DocumentMetadata,
) (domain.DocumentResult, error) {
	m.lastID = id
	m.lastContent = content
	m.lastMetadata = metadata
	return m.result, m.err
}

func (m *mockRAGService) RemoveDocument(_ context.Context, id, domainName string) (domain.DocumentResult, error) {
	m.lastID = id
	m.lastDomain = domainName
	return m.result, m.err
}

func (m *mockRAGService) Query(
	_ context.Context,
	query, domainName string,
	opts domain.QueryOptions,
) (*domain.RAGResult, error) {
	m.lastQuery = query
	m.lastDomain = domainName
	m.lastOpts = opts
	return m.ragResult, m.err
}

func (m *mockRAGService) Status(_ context.Context) (*domain.Status, error) {
	return m.status, m.err
}
