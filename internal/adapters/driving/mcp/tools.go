package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentInput is a document as supplied to the ingestion tools.
type DocumentInput struct {
	ID          string   `json:"id" jsonschema:"unique document identifier"`
	Content     string   `json:"content" jsonschema:"full text of the document"`
	Domain      string   `json:"domain" jsonschema:"knowledge domain the document belongs to, e.g. fitness"`
	Source      string   `json:"source,omitempty" jsonschema:"producer of the document (default mcp)"`
	ContentType string   `json:"content_type,omitempty" jsonschema:"kind of content, e.g. article (default text)"`
	Title       string   `json:"title,omitempty" jsonschema:"document title"`
	Author      string   `json:"author,omitempty" jsonschema:"document author"`
	Tags        []string `json:"tags,omitempty" jsonschema:"free-form tags"`
}

func (in DocumentInput) metadata() domain.DocumentMetadata {
	md := domain.DocumentMetadata{
		Domain:      in.Domain,
		Source:      in.Source,
		ContentType: in.ContentType,
		Title:       in.Title,
		Author:      in.Author,
		Tags:        in.Tags,
	}
	if md.Source == "" {
		md.Source = "mcp"
	}
	if md.ContentType == "" {
		md.ContentType = "text"
	}
	return md
}

func (in DocumentInput) document() domain.Document {
	return domain.Document{ID: in.ID, Content: in.Content, Metadata: in.metadata()}
}

// DocumentOutput reports the outcome for one document.
type DocumentOutput struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
}

func toDocumentOutput(r domain.DocumentResult) DocumentOutput {
	return DocumentOutput{
		DocumentID: r.DocumentID,
		Status:     string(r.Status),
		ChunkCount: r.ChunkCount,
		ErrorKind:  string(r.ErrorKind),
		Error:      r.Error,
	}
}

// BatchAddInput is the input schema for the batch_add_documents tool.
type BatchAddInput struct {
	Documents []DocumentInput `json:"documents" jsonschema:"documents to add, at most 50"`
}

// BatchAddOutput is the output schema for the batch_add_documents tool.
type BatchAddOutput struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Results    []DocumentOutput `json:"results"`
}

// RemoveDocumentInput is the input schema for the remove_document tool.
type RemoveDocumentInput struct {
	ID     string `json:"id" jsonschema:"identifier of the document to remove"`
	Domain string `json:"domain" jsonschema:"domain the document was added to"`
}

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Query    string   `json:"query" jsonschema:"natural-language question"`
	Domain   string   `json:"domain" jsonschema:"knowledge domain to answer from"`
	TopK     int      `json:"top_k,omitempty" jsonschema:"maximum number of passages to use, 1-20 (default 5)"`
	MinScore *float64 `json:"min_score,omitempty" jsonschema:"minimum similarity score in [0,1] (default 0.7)"`

	MaxPerDocument *int `json:"max_per_document,omitempty" jsonschema:"most passages from one document, 0 for no cap (default 2)"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Answer           string         `json:"answer"`
	Confidence       float64        `json:"confidence"`
	Sources          []SourceOutput `json:"sources"`
	Warnings         []string       `json:"warnings,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// SourceOutput is a passage the answer was grounded on.
type SourceOutput struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Title      string  `json:"title,omitempty"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// StatusInput is the (empty) input schema for the status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the status tool.
type StatusOutput struct {
	Ready            bool           `json:"ready"`
	DocumentCount    int            `json:"document_count"`
	Domains          map[string]int `json:"domains"`
	VectorDimensions int            `json:"vector_dimensions"`
	EmbeddingModel   string         `json:"embedding_model"`
	CompletionModel  string         `json:"completion_model,omitempty"`
	VectorBackend    string         `json:"vector_backend,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_document",
		Description: "Add a document to a knowledge domain. Re-adding an existing id replaces it.",
	}, s.handleAddDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "batch_add_documents",
		Description: "Add up to 50 documents at once. Failures are reported per document.",
	}, s.handleBatchAdd)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_document",
		Description: "Replace the content and metadata of a document",
	}, s.handleUpdateDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_document",
		Description: "Remove a document and all of its chunks from a domain",
	}, s.handleRemoveDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Answer a question from the documents in a knowledge domain, citing the passages used",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "status",
		Description: "Report pipeline readiness and document counts per domain",
	}, s.handleStatus)
}

func (s *Server) handleAddDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	result, err := s.ports.RAG.AddDocument(ctx, input.document())
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, toDocumentOutput(result), nil
}

func (s *Server) handleBatchAdd(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BatchAddInput,
) (*mcp.CallToolResult, BatchAddOutput, error) {
	docs := make([]domain.Document, len(input.Documents))
	for i := range input.Documents {
		docs[i] = input.Documents[i].document()
	}

	result, err := s.ports.RAG.BatchAddDocuments(ctx, docs)
	if err != nil && len(result.Results) == 0 {
		return nil, BatchAddOutput{}, err
	}

	output := BatchAddOutput{
		Total:      result.Total,
		Successful: result.Successful,
		Failed:     result.Failed,
		Results:    make([]DocumentOutput, len(result.Results)),
	}
	for i, r := range result.Results {
		output.Results[i] = toDocumentOutput(r)
	}
	return nil, output, nil
}

func (s *Server) handleUpdateDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	result, err := s.ports.RAG.UpdateDocument(ctx, input.ID, input.Content, input.metadata())
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, toDocumentOutput(result), nil
}

func (s *Server) handleRemoveDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RemoveDocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	result, err := s.ports.RAG.RemoveDocument(ctx, input.ID, input.Domain)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, toDocumentOutput(result), nil
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	opts := domain.QueryOptions{TopK: input.TopK, MinScore: input.MinScore, MaxPerDocument: input.MaxPerDocument}
	result, err := s.ports.RAG.Query(ctx, input.Query, input.Domain, opts)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Answer:           result.Answer,
		Confidence:       result.Confidence,
		Sources:          make([]SourceOutput, len(result.Sources)),
		Warnings:         result.Metadata.Warnings,
		ProcessingTimeMs: result.ProcessingTimeMs,
	}
	for i, m := range result.Sources {
		title, _ := m.Metadata[domain.MetaTitle].(string)
		output.Sources[i] = SourceOutput{
			DocumentID: m.DocumentID,
			ChunkID:    m.ChunkID,
			Title:      title,
			Score:      m.Score,
			Text:       m.Text,
		}
	}
	return nil, output, nil
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.ports.RAG.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, toStatusOutput(status), nil
}

func toStatusOutput(status *domain.Status) StatusOutput {
	domains := status.Namespaces
	if domains == nil {
		domains = map[string]int{}
	}
	return StatusOutput{
		Ready:            status.IsReady,
		DocumentCount:    status.DocumentCount,
		Domains:          domains,
		VectorDimensions: status.VectorDimensions,
		EmbeddingModel:   status.EmbeddingModel,
		CompletionModel:  status.CompletionModel,
		VectorBackend:    status.VectorBackend,
	}
}
