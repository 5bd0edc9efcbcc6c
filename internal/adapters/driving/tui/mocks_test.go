package tui

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type mockRAGService struct {
	result *domain.RAGResult
	status *domain.Status
	err    error

	lastQuery  string
	lastDomain string
}

func (m *mockRAGService) Initialize(_ context.Context) error { return nil }
func (m *mockRAGService) Shutdown(_ context.Context) error   { return nil }

func (m *mockRAGService) AddDocument(_ context.Context, doc domain.Document) (domain.DocumentResult, error) {
	return domain.DocumentResult{DocumentID: doc.ID, Status: domain.StatusAdded}, nil
}

func (m *mockRAGService) BatchAddDocuments(_ context.Context, docs []domain.Document) (domain.BatchResult, error) {
	return domain.BatchResult{Total: len(docs), Successful: len(docs)}, nil
}

func (m *mockRAGService) UpdateDocument(
	_ context.Context, id, _ string, _ domain.DocumentMetadata,
) (domain.DocumentResult, error) {
	return domain.DocumentResult{DocumentID: id, Status: domain.StatusUpdated}, nil
}

func (m *mockRAGService) RemoveDocument(_ context.Context, id, _ string) (domain.DocumentResult, error) {
	return domain.DocumentResult{DocumentID: id, Status: domain.StatusRemoved}, nil
}

func (m *mockRAGService) Query(
	_ context.Context, query, domainName string, _ domain.QueryOptions,
) (*domain.RAGResult, error) {
	m.lastQuery = query
	m.lastDomain = domainName
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockRAGService) Status(_ context.Context) (*domain.Status, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
}
