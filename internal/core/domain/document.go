package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Document is a caller-owned text document submitted for ingestion.
// The pipeline never mutates ID or Metadata.Domain; moving a document to
// another domain requires removing it and adding it again.
type Document struct {
	// ID is the caller-assigned unique identifier.
	ID string `json:"id" yaml:"id"`

	// Content is the full text to be chunked and embedded.
	Content string `json:"content" yaml:"content"`

	// Metadata describes where the document came from.
	Metadata DocumentMetadata `json:"metadata" yaml:"metadata"`
}

// DocumentMetadata is inherited by every VectorRecord of a document.
type DocumentMetadata struct {
	// Domain is the logical partition (namespace) the document belongs to.
	Domain string `json:"domain" yaml:"domain"`

	// Source names the producer of the document, e.g. "manual" or "rss".
	Source string `json:"source" yaml:"source"`

	// ContentType describes the kind of content, e.g. "article".
	ContentType string `json:"contentType" yaml:"contentType"`

	Title  string   `json:"title,omitempty" yaml:"title,omitempty"`
	Author string   `json:"author,omitempty" yaml:"author,omitempty"`
	Tags   []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Chunk is a bounded slice of a document's text.
// Chunks are derived by the chunker and never created independently.
type Chunk struct {
	// ParentDocID links to the Document this chunk was cut from.
	ParentDocID string

	// Index is the 0-based contiguous position within the document.
	Index int

	// Text is the chunk text including its leading overlap.
	Text string

	// OverlapLen is the byte length of the leading overlap copied from
	// the previous chunk. Text[OverlapLen:] is new content.
	OverlapLen int

	// ApproxTokenCount is an estimate of the model tokens in Text.
	ApproxTokenCount int
}

// Body returns the chunk text with the leading overlap removed.
func (c Chunk) Body() string {
	if c.OverlapLen <= 0 || c.OverlapLen > len(c.Text) {
		return c.Text
	}
	return c.Text[c.OverlapLen:]
}

// Metadata keys written on every VectorRecord.
const (
	MetaText        = "text"
	MetaDocumentID  = "document_id"
	MetaChunkIndex  = "chunk_index"
	MetaDomain      = "domain"
	MetaSource      = "source"
	MetaContentType = "content_type"
	MetaTitle       = "title"
	MetaAuthor      = "author"
	MetaTags        = "tags"
)

// VectorRecord is a chunk embedding as stored in a VectorStore.
type VectorRecord struct {
	// ID is "{docId}_{chunkIndex}".
	ID string

	// Vector is the embedding of the chunk text.
	Vector []float32

	// Namespace equals the owning document's domain.
	Namespace string

	// Metadata holds the chunk text and the inherited document metadata.
	Metadata map[string]any
}

// RecordID builds the VectorRecord id for a chunk of a document.
func RecordID(docID string, chunkIndex int) string {
	return docID + "_" + strconv.Itoa(chunkIndex)
}

// ParseRecordID splits a VectorRecord id into document id and chunk index.
// Document ids may themselves contain underscores; the index is taken
// from the last one.
func ParseRecordID(id string) (docID string, chunkIndex int, err error) {
	i := strings.LastIndex(id, "_")
	if i <= 0 || i == len(id)-1 {
		return "", 0, fmt.Errorf("%w: malformed record id %q", ErrInvalidInput, id)
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("%w: malformed record id %q", ErrInvalidInput, id)
	}
	return id[:i], n, nil
}

// NewVectorRecord builds the stored form of an embedded chunk.
func NewVectorRecord(doc Document, chunk Chunk, vector []float32) VectorRecord {
	meta := map[string]any{
		MetaText:        chunk.Text,
		MetaDocumentID:  doc.ID,
		MetaChunkIndex:  chunk.Index,
		MetaDomain:      doc.Metadata.Domain,
		MetaSource:      doc.Metadata.Source,
		MetaContentType: doc.Metadata.ContentType,
	}
	if doc.Metadata.Title != "" {
		meta[MetaTitle] = doc.Metadata.Title
	}
	if doc.Metadata.Author != "" {
		meta[MetaAuthor] = doc.Metadata.Author
	}
	if len(doc.Metadata.Tags) > 0 {
		meta[MetaTags] = append([]string(nil), doc.Metadata.Tags...)
	}
	return VectorRecord{
		ID:        RecordID(doc.ID, chunk.Index),
		Vector:    vector,
		Namespace: doc.Metadata.Domain,
		Metadata:  meta,
	}
}

// EstimateTokens approximates the model token count of text
// at four characters per token, rounded up.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}
