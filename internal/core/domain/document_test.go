package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecordID tests the "{docId}_{chunkIndex}" id format
func TestRecordID(t *testing.T) {
	assert.Equal(t, "doc1_0", RecordID("doc1", 0))
	assert.Equal(t, "my_doc_12", RecordID("my_doc", 12))
}

// TestParseRecordID tests splitting ids back into parts
func TestParseRecordID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		docID   string
		index   int
		wantErr bool
	}{
		{name: "simple", id: "doc1_3", docID: "doc1", index: 3},
		{name: "underscore in doc id", id: "my_doc_0", docID: "my_doc", index: 0},
		{name: "no separator", id: "doc1", wantErr: true},
		{name: "trailing separator", id: "doc1_", wantErr: true},
		{name: "leading separator", id: "_4", wantErr: true},
		{name: "non numeric index", id: "doc1_x", wantErr: true},
		{name: "negative index", id: "doc1_-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docID, index, err := ParseRecordID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.docID, docID)
			assert.Equal(t, tt.index, index)
		})
	}
}

// TestChunk_Body tests overlap stripping
func TestChunk_Body(t *testing.T) {
	c := Chunk{Text: "overlap. new text", OverlapLen: 9}
	assert.Equal(t, "new text", c.Body())

	c.OverlapLen = 0
	assert.Equal(t, "overlap. new text", c.Body())

	c.OverlapLen = 100
	assert.Equal(t, "overlap. new text", c.Body())
}

// TestNewVectorRecord tests metadata inheritance
func TestNewVectorRecord(t *testing.T) {
	doc := Document{
		ID:      "doc1",
		Content: "irrelevant",
		Metadata: DocumentMetadata{
			Domain:      "fitness",
			Source:      "manual",
			ContentType: "article",
			Title:       "HIIT",
			Tags:        []string{"cardio"},
		},
	}
	chunk := Chunk{ParentDocID: "doc1", Index: 2, Text: "burpees"}

	rec := NewVectorRecord(doc, chunk, []float32{1, 0})

	assert.Equal(t, "doc1_2", rec.ID)
	assert.Equal(t, "fitness", rec.Namespace)
	assert.Equal(t, []float32{1, 0}, rec.Vector)
	assert.Equal(t, "burpees", rec.Metadata[MetaText])
	assert.Equal(t, "doc1", rec.Metadata[MetaDocumentID])
	assert.Equal(t, 2, rec.Metadata[MetaChunkIndex])
	assert.Equal(t, "fitness", rec.Metadata[MetaDomain])
	assert.Equal(t, "HIIT", rec.Metadata[MetaTitle])
	assert.Equal(t, []string{"cardio"}, rec.Metadata[MetaTags])
	_, hasAuthor := rec.Metadata[MetaAuthor]
	assert.False(t, hasAuthor)
}

// TestEstimateTokens tests the four-characters-per-token estimate
func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 250, EstimateTokens(strings.Repeat("x", 1000)))
}
