package domain

// IngestStatus is the outcome of a document lifecycle operation.
type IngestStatus string

// Ingestion outcomes.
const (
	StatusAdded   IngestStatus = "added"
	StatusUpdated IngestStatus = "updated"
	StatusRemoved IngestStatus = "removed"
	StatusFailed  IngestStatus = "failed"
)

// ErrorKind classifies a per-document failure.
type ErrorKind string

// Error kinds reported in batch results.
const (
	ErrorKindChunking     ErrorKind = "chunking"
	ErrorKindProvider     ErrorKind = "provider"
	ErrorKindVectorStore  ErrorKind = "vector_store"
	ErrorKindInvalidInput ErrorKind = "invalid_input"
	ErrorKindInternal     ErrorKind = "internal"
)

// DocumentResult reports what happened to one document.
type DocumentResult struct {
	DocumentID string       `json:"documentId"`
	Status     IngestStatus `json:"status"`
	ChunkCount int          `json:"chunkCount,omitempty"`
	ErrorKind  ErrorKind    `json:"errorKind,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Failed reports whether the operation failed.
func (r DocumentResult) Failed() bool {
	return r.Status == StatusFailed
}

// BatchResult aggregates per-document results of a batch ingestion.
type BatchResult struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Results    []DocumentResult `json:"results"`
}

// Status describes the readiness and contents of the pipeline.
type Status struct {
	IsReady          bool           `json:"isReady"`
	DocumentCount    int            `json:"documentCount"`
	Namespaces       map[string]int `json:"namespaces"`
	VectorDimensions int            `json:"vectorDimensions"`
	EmbeddingModel   string         `json:"embeddingModel"`
	CompletionModel  string         `json:"completionModel,omitempty"`
	VectorBackend    string         `json:"vectorBackend,omitempty"`
}

// NamespaceStats is the per-namespace content of a vector store.
type NamespaceStats struct {
	Records   int
	Documents int
}

// StoreStats summarises a vector store.
type StoreStats struct {
	Namespaces map[string]NamespaceStats
	Dimensions int
}

// DocumentCount sums distinct documents across namespaces.
func (s StoreStats) DocumentCount() int {
	total := 0
	for _, ns := range s.Namespaces {
		total += ns.Documents
	}
	return total
}
