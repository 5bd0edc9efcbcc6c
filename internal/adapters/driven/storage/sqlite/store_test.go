package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// setupTestStore creates a SQLite vector store in a temporary directory.
func setupTestStore(t *testing.T, dims int) *VectorStore {
	t.Helper()

	store, err := NewVectorStore(t.TempDir(), dims)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func testRecord(docID string, index int, vec []float32, extra map[string]any) domain.VectorRecord {
	doc := domain.Document{
		ID: docID,
		Metadata: domain.DocumentMetadata{
			Domain:      "fitness",
			Source:      "manual",
			ContentType: "article",
			Tags:        []string{"running"},
		},
	}
	rec := domain.NewVectorRecord(doc, domain.Chunk{ParentDocID: docID, Index: index, Text: "chunk text"}, vec)
	for k, v := range extra {
		rec.Metadata[k] = v
	}
	return rec
}

func TestNewVectorStore_CreatesDatabase(t *testing.T) {
	store := setupTestStore(t, 3)
	assert.FileExists(t, store.Path())
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewVectorStore_ReopenKeepsDataAndDimensions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewVectorStore(dir, 0)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, "fitness", []domain.VectorRecord{testRecord("doc1", 0, []float32{1, 0, 0}, nil)}))
	require.NoError(t, store.Close())

	reopened, err := NewVectorStore(dir, 0)
	require.NoError(t, err)
	defer reopened.Close()

	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Dimensions)
	assert.Equal(t, domain.NamespaceStats{Records: 1, Documents: 1}, stats.Namespaces["fitness"])

	_, err = reopened.Query(ctx, "fitness", []float32{1, 0}, 1, nil)
	assert.Error(t, err)
}

func TestVectorStore_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t, 2)

	require.NoError(t, store.Upsert(ctx, "fitness", []domain.VectorRecord{
		testRecord("doc1", 0, []float32{1, 0}, nil),
		testRecord("doc1", 1, []float32{0, 1}, nil),
		testRecord("doc2", 0, []float32{1, 1}, nil),
	}))

	matches, err := store.Query(ctx, "fitness", []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "doc1_0", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "doc2_0", matches[1].ID)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)

	meta := matches[0].Metadata
	assert.Equal(t, "chunk text", meta[domain.MetaText])
	assert.Equal(t, "doc1", meta[domain.MetaDocumentID])
	assert.Equal(t, 0, meta[domain.MetaChunkIndex])
	assert.Equal(t, "fitness", meta[domain.MetaDomain])
}

func TestVectorStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t, 2)

	require.NoError(t, store.Upsert(ctx, "fitness", []domain.VectorRecord{testRecord("doc1", 0, []float32{1, 0}, nil)}))
	require.NoError(t, store.Upsert(ctx, "fitness", []domain.VectorRecord{testRecord("doc1", 0, []float32{0, 1}, nil)}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Namespaces["fitness"].Records)

	matches, err := store.Query(ctx, "fitness", []float32{0, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestVectorStore_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t, 2)

	require.NoError(t, store.Upsert(ctx, "fitness", []domain.VectorRecord{testRecord("doc1", 0, []float32{1, 0}, nil)}))
	require.NoError(t, store.Upsert(ctx, "finance", []domain.VectorRecord{testRecord("doc2", 0, []float32{1, 0}, nil)}))

	matches, err := store.Query(ctx, "finance", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc2_0", matches[0].ID)
}

func TestVectorStore_QueryFilter(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t, 2)

	require.NoError(t, store.Upsert(ctx, "fitness", []domain.VectorRecord{
		testRecord("doc1", 0, []float32{1, 0}, nil),
		testRecord("doc2", 0, []float32{1, 0.2}, map[string]any{domain.MetaTags: []string{"nutrition"}}),
	}))

	matches, err := store.Query(ctx, "fitness", []float32{1, 0}, 10, domain.Filter{domain.MetaTags: domain.In("nutrition")})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc2_0", matches[0].ID)

	matches, err = store.Query(ctx, "fitness", []float32{1, 0}, 10, domain.Filter{domain.MetaSource: domain.Eq("rss")})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestVectorStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t, 2)

	require.NoError(t, store.Upsert(ctx, "fitness", []domain.VectorRecord{
		testRecord("doc1", 0, []float32{1, 0}, nil),
		testRecord("doc1", 1, []float32{0, 1}, nil),
		testRecord("doc2", 0, []float32{1, 1}, map[string]any{domain.MetaSource: "rss"}),
		testRecord("doc3", 0, []float32{1, 1}, nil),
	}))

	n, err := store.Delete(ctx, "fitness", driven.DeleteRequest{DocumentID: "doc1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.Delete(ctx, "fitness", driven.DeleteRequest{Filter: domain.Filter{domain.MetaSource: domain.Eq("rss")}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.Delete(ctx, "fitness", driven.DeleteRequest{IDs: []string{"doc3_0", "doc9_0"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.Delete(ctx, "fitness", driven.DeleteRequest{DocumentID: "doc1"})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = store.Delete(ctx, "fitness", driven.DeleteRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats.Namespaces)
}

func TestVectorStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t, 3)

	err := store.Upsert(ctx, "fitness", []domain.VectorRecord{testRecord("doc1", 0, []float32{1, 0}, nil)})
	var storeErr *domain.VectorStoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "fitness", storeErr.Namespace)
}

func TestFloat32Encoding(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4e38}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Len(t, float32SliceToBytes(in), 16)
}
