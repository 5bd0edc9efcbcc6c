// Package cli implements the sercha-rag command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time.
var version = "dev"

var verbose bool

// Services used by the commands. Tests replace them directly.
var (
	settingsService driving.SettingsService
	ragService      driving.RAGService
	promptFiles     PromptFiles
	extractor       ContentExtractor
	metricsHandler  http.Handler
	configDir       string

	openPipeline  PipelineOpener
	closePipeline func(context.Context) error
)

// PipelineOpener opens the RAG pipeline. The returned function releases it.
type PipelineOpener func(ctx context.Context) (driving.RAGService, func(context.Context) error, error)

// PromptFiles exposes the prompt templates on disk.
type PromptFiles interface {
	Load(name string) (string, error)
	Path(name string) string
	Dir() string
}

// ContentExtractor turns file bytes into indexable text.
type ContentExtractor interface {
	Extract(ctx context.Context, raw *domain.RawContent) (*domain.ExtractedText, error)
}

// Services holds the dependencies the commands need.
type Services struct {
	Settings  driving.SettingsService
	Prompts   PromptFiles
	Extractor ContentExtractor
	Metrics   http.Handler
	ConfigDir string

	// OpenPipeline is called the first time a command needs the RAG
	// service, so settings commands work without any provider.
	OpenPipeline PipelineOpener
}

// SetServices injects the command dependencies.
func SetServices(s Services) {
	settingsService = s.Settings
	promptFiles = s.Prompts
	extractor = s.Extractor
	metricsHandler = s.Metrics
	configDir = s.ConfigDir
	openPipeline = s.OpenPipeline
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Answer questions from your own documents",
	Long: `sercha-rag keeps a searchable knowledge base of your documents, split into
domains, and answers natural-language questions from it with cited sources.

Documents are chunked, embedded and stored in a vector store. Questions are
planned, matched against the stored chunks of one domain, and answered by a
language model that is given only the matching passages.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command and releases the pipeline afterwards.
// SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if cerr := releasePipeline(context.Background()); cerr != nil {
		logger.Warn("shutting down pipeline: %v", cerr)
	}
	return err
}

// pipeline returns the RAG service, opening it on first use.
func pipeline(ctx context.Context) (driving.RAGService, error) {
	if ragService != nil {
		return ragService, nil
	}
	if openPipeline == nil {
		return nil, errors.New("rag service not configured")
	}

	svc, closer, err := openPipeline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open pipeline: %w", err)
	}
	ragService = svc
	closePipeline = closer
	return svc, nil
}

// releasePipeline shuts down a pipeline opened by pipeline.
func releasePipeline(ctx context.Context) error {
	if closePipeline == nil {
		return nil
	}
	err := closePipeline(ctx)
	closePipeline = nil
	ragService = nil
	return err
}
