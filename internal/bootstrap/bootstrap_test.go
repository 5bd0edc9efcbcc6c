package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestApp(t *testing.T, environ ...string) *App {
	t.Helper()
	app, err := New(Options{
		ConfigDir: t.TempDir(),
		EnvFile:   "-",
		Environ:   append([]string{}, environ...),
	})
	require.NoError(t, err)
	return app
}

func TestNew(t *testing.T) {
	app := newTestApp(t, "SERCHA_RAG_RETRIEVAL_DEFAULT_TOP_K=7")

	assert.NotNil(t, app.Config)
	assert.NotNil(t, app.Settings)
	assert.NotNil(t, app.Metrics)
	assert.Contains(t, app.Extractor.MIMETypes(), "text/markdown")
	assert.Equal(t, filepath.Join(app.ConfigDir, "prompts"), app.Prompts.Dir())

	settings, err := app.Settings.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, settings.Retrieval.DefaultTopK)
}

func TestNew_LoadsEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SERCHA_RAG_TEST_ENV_FILE=loaded\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("SERCHA_RAG_TEST_ENV_FILE") })

	_, err := New(Options{ConfigDir: t.TempDir(), EnvFile: envFile, Environ: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "loaded", os.Getenv("SERCHA_RAG_TEST_ENV_FILE"))
}

func TestOpenPipeline_Memory(t *testing.T) {
	app := newTestApp(t, "SERCHA_RAG_VECTOR_STORE_BACKEND=memory")
	ctx := context.Background()

	p, err := app.OpenPipeline(ctx)
	require.NoError(t, err)
	defer p.Close(ctx)

	assert.Equal(t, domain.VectorBackendMemory, p.Settings.VectorStore.Backend)
	assert.NotEmpty(t, p.Warnings, "missing LLM is reported")

	res, err := p.Service.AddDocument(ctx, domain.Document{
		ID:       "doc1",
		Content:  "Yoga breathing improves sleep quality.",
		Metadata: domain.DocumentMetadata{Domain: "wellness", Source: "manual", ContentType: "article"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAdded, res.Status)

	minScore := 0.0
	result, err := p.Service.Query(ctx, "yoga breathing", "wellness", domain.QueryOptions{MinScore: &minScore})
	require.NoError(t, err)
	require.NotEmpty(t, result.Sources)
	assert.Equal(t, "doc1", result.Sources[0].DocumentID)
	assert.Contains(t, result.Metadata.Warnings, domain.WarningPlanningDegraded)
	assert.Contains(t, result.Metadata.Warnings, domain.WarningExtractiveAnswer)
}

func TestOpenPipeline_SQLite(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	p, err := app.OpenPipeline(ctx)
	require.NoError(t, err)

	_, err = p.Service.AddDocument(ctx, domain.Document{
		ID:       "doc1",
		Content:  "Pasta on a budget.",
		Metadata: domain.DocumentMetadata{Domain: "cooking", Source: "manual", ContentType: "recipe"},
	})
	require.NoError(t, err)
	require.NoError(t, p.Close(ctx))

	assert.FileExists(t, filepath.Join(app.ConfigDir, "data", "vectors.db"))

	// Documents survive reopening.
	p, err = app.OpenPipeline(ctx)
	require.NoError(t, err)
	defer p.Close(ctx)

	status, err := p.Service.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.DocumentCount)
	assert.Equal(t, string(domain.VectorBackendSQLite), status.VectorBackend)
}

func TestOpenPipeline_InvalidSettings(t *testing.T) {
	app := newTestApp(t, "SERCHA_RAG_CHUNKING_OVERLAP_SIZE=5000")

	_, err := app.OpenPipeline(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOpenVectorStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := OpenVectorStore(ctx, domain.VectorStoreSettings{Backend: domain.VectorBackendMemory}, 8, t.TempDir())
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &memory.VectorStore{}, store)
	})

	t.Run("sqlite relative path", func(t *testing.T) {
		dir := t.TempDir()
		store, err := OpenVectorStore(ctx, domain.VectorStoreSettings{Backend: domain.VectorBackendSQLite, Path: "vectors"}, 8, dir)
		require.NoError(t, err)
		defer store.Close()
		assert.FileExists(t, filepath.Join(dir, "vectors", "vectors.db"))
	})

	t.Run("pgvector without dsn", func(t *testing.T) {
		_, err := OpenVectorStore(ctx, domain.VectorStoreSettings{Backend: domain.VectorBackendPgvector}, 8, t.TempDir())
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := OpenVectorStore(ctx, domain.VectorStoreSettings{Backend: "redis"}, 8, t.TempDir())
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestCheckDimensions(t *testing.T) {
	ctx := context.Background()
	embedder := hashing.New(hashing.DefaultDimensions)

	assert.NoError(t, checkDimensions(ctx, memory.NewVectorStore(0), embedder))
	assert.NoError(t, checkDimensions(ctx, memory.NewVectorStore(hashing.DefaultDimensions), embedder))

	err := checkDimensions(ctx, memory.NewVectorStore(3), embedder)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "3-dimensional")
}
