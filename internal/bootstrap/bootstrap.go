// Package bootstrap wires configuration, providers, the vector store and
// the core services into a runnable pipeline.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/metrics"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

const pgConnectTimeout = 10 * time.Second

// Options controls where configuration comes from.
type Options struct {
	// ConfigDir holds config.toml, prompts/ and data/. Empty means file.DefaultDir.
	ConfigDir string

	// EnvFile is loaded into the process environment when it exists.
	// Empty means ".env"; "-" disables loading.
	EnvFile string

	// Environ overrides the environment used for settings overrides.
	// Nil means os.Environ after EnvFile is loaded.
	Environ []string
}

// App holds the configuration objects every command needs. The pipeline
// itself is opened separately so settings commands work offline.
type App struct {
	ConfigDir string
	Config    *file.ConfigStore
	Settings  *services.SettingsService
	Prompts   *file.PromptStore
	Extractor *normalisers.Registry
	Metrics   *metrics.Prometheus
}

// New loads configuration and environment overrides.
func New(opts Options) (*App, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if envFile != "-" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("loading %s: %v", envFile, err)
		}
	}

	dir := opts.ConfigDir
	if dir == "" {
		var err error
		if dir, err = file.DefaultDir(); err != nil {
			return nil, err
		}
	}

	cfg, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	cfg.ApplyEnv(environ)

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	return &App{
		ConfigDir: dir,
		Config:    cfg,
		Settings:  services.NewSettingsService(cfg, ai.NewConfigValidator()),
		Prompts:   prompts,
		Extractor: normalisers.Default(),
		Metrics:   metrics.NewPrometheus(""),
	}, nil
}

// Pipeline is an initialised RAGOrchestrator and the resources it owns.
type Pipeline struct {
	Service  *services.RAGOrchestrator
	Settings domain.AppSettings

	// Warnings are non-fatal provider problems found while opening.
	Warnings []string

	stopWatch context.CancelFunc
	watcher   *file.PromptWatcher
}

// OpenPipeline builds providers and the vector store from the current
// settings and initialises the orchestrator.
func (a *App) OpenPipeline(ctx context.Context) (*Pipeline, error) {
	settings, err := a.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	logger.Section("Pipeline")
	providers := ai.Init(ctx, *settings)
	warnings := append([]string(nil), providers.Warnings...)

	store, err := OpenVectorStore(ctx, settings.VectorStore, providers.Embedder.Dimensions(), a.ConfigDir)
	if err != nil {
		providers.Close()
		return nil, err
	}
	if err := checkDimensions(ctx, store, providers.Embedder); err != nil {
		providers.Close()
		_ = store.Close()
		return nil, err
	}

	planner := services.NewQueryPlanner(providers.Completer)
	planner.SetPromptStore(a.Prompts)
	synthesizer := services.NewResponseSynthesizer(providers.Completer, settings.Synthesis.MaxTokensPerContext)
	synthesizer.SetPromptStore(a.Prompts)

	orch := services.NewRAGOrchestrator(services.Deps{
		Chunker:     chunker.FromSettings(settings.Chunking),
		Embedder:    providers.Embedder,
		Store:       store,
		Planner:     planner,
		Retriever:   services.NewRetriever(providers.Embedder, store),
		Synthesizer: synthesizer,
		Pacer:       ratelimit.FromSettings(settings.Ingestion),
		Metrics:     a.Metrics,
		Completer:   providers.Completer,
	}, services.ConfigFromSettings(*settings))

	if err := orch.Initialize(ctx); err != nil {
		_ = orch.Shutdown(ctx)
		return nil, fmt.Errorf("initialise pipeline: %w", err)
	}

	for _, w := range warnings {
		logger.Warn("%s", w)
	}

	p := &Pipeline{Service: orch, Settings: *settings, Warnings: warnings}
	p.watchPrompts(a.Prompts)
	return p, nil
}

// watchPrompts reloads prompts edited while the pipeline runs. Failure to
// watch only disables hot reload.
func (p *Pipeline) watchPrompts(store *file.PromptStore) {
	// Loading once creates the directory and default files.
	if _, err := store.Load(driven.PromptQueryPlan); err != nil {
		logger.Debug("prompt hot reload disabled: %v", err)
		return
	}
	w, err := file.NewPromptWatcher(store, store.Dir())
	if err != nil {
		logger.Debug("prompt hot reload disabled: %v", err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.watcher = w
	p.stopWatch = cancel
	go w.Run(ctx)
}

// Close stops the prompt watcher and shuts the orchestrator down.
func (p *Pipeline) Close(ctx context.Context) error {
	if p.stopWatch != nil {
		p.stopWatch()
		_ = p.watcher.Close()
	}
	return p.Service.Shutdown(ctx)
}

// OpenVectorStore opens the configured backend. dims is used when the
// settings do not fix a dimension. Relative sqlite paths resolve against
// configDir.
func OpenVectorStore(ctx context.Context, s domain.VectorStoreSettings, dims int, configDir string) (driven.VectorStore, error) {
	if s.Dimensions > 0 {
		dims = s.Dimensions
	}

	switch s.Backend {
	case domain.VectorBackendMemory:
		logger.Debug("Vector store: memory (%d dims)", dims)
		return memory.NewVectorStore(dims), nil

	case domain.VectorBackendSQLite, "":
		dataDir := s.Path
		switch {
		case dataDir == "":
			dataDir = filepath.Join(configDir, "data")
		case !filepath.IsAbs(dataDir):
			dataDir = filepath.Join(configDir, dataDir)
		}
		logger.Debug("Vector store: sqlite at %s", dataDir)
		store, err := sqlite.NewVectorStore(dataDir, s.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("open sqlite vector store: %w", err)
		}
		return store, nil

	case domain.VectorBackendPgvector:
		logger.Debug("Vector store: pgvector table %s (%d dims)", s.Table, dims)
		store, err := pgvector.New(ctx, pgvector.Config{
			DSN:            s.DSN,
			Table:          s.Table,
			Dimensions:     dims,
			ConnectTimeout: pgConnectTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open pgvector store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: unknown vector store backend %q", domain.ErrInvalidInput, s.Backend)
	}
}

// checkDimensions refuses a store that already holds vectors of another
// size than the embedder produces.
func checkDimensions(ctx context.Context, store driven.VectorStore, embedder driven.EmbeddingProvider) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read vector store stats: %w", err)
	}
	if stats.Dimensions > 0 && stats.Dimensions != embedder.Dimensions() {
		return fmt.Errorf("%w: vector store holds %d-dimensional vectors but %s produces %d; "+
			"switch back to the original embedding model or remove and re-add the documents",
			domain.ErrInvalidInput, stats.Dimensions, embedder.ModelName(), embedder.Dimensions())
	}
	return nil
}
