package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var (
	syncDomain string
	syncSource string
	syncWatch  bool
	syncJSON   bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [directory]",
	Short: "Add every supported file in a directory",
	Long: `Adds every supported file under a directory to a domain. Hidden files and
directories are skipped. Each document id is the file's path relative to the
directory, so syncing again replaces earlier versions.

With --watch the command keeps running and re-indexes files as they are
created or changed, and removes documents whose files are deleted.

Examples:
  sercha-rag sync ~/notes/fitness --domain fitness
  sercha-rag sync ./docs --domain handbook --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVarP(&syncDomain, "domain", "d", "", "knowledge domain (required)")
	syncCmd.Flags().StringVar(&syncSource, "source", "filesystem", "producer of the documents")
	syncCmd.Flags().BoolVarP(&syncWatch, "watch", "w", false, "keep watching the directory for changes")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "output the initial sync result as JSON")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncDomain == "" {
		return errors.New("--domain is required")
	}

	conn := filesystem.New(args[0])
	if err := conn.Validate(); err != nil {
		return err
	}

	rag, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}

	docs, skipped := collectDirectory(cmd, conn)
	if len(docs) > 0 {
		result, err := addInBatches(cmd.Context(), rag, docs)
		if oerr := outputBatchResult(cmd, result, syncJSON); oerr != nil {
			return oerr
		}
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
	} else {
		cmd.Printf("No supported files found in %s\n", conn.Root())
	}
	if skipped > 0 && !syncJSON {
		cmd.Printf("Skipped %d unsupported files\n", skipped)
	}

	if !syncWatch {
		return nil
	}
	return watchDirectory(cmd, rag, conn)
}

// collectDirectory walks the directory and converts each file into a
// document. Files that cannot be converted are counted as skipped.
func collectDirectory(cmd *cobra.Command, conn *filesystem.Connector) ([]domain.Document, int) {
	docsChan, errsChan := conn.Walk(cmd.Context())

	var (
		docs    []domain.Document
		skipped int
	)
	for raw := range docsChan {
		doc, err := fileDocument(cmd.Context(), conn, raw)
		if err != nil {
			skipped++
			logger.Debug("sync: skipping %s: %v", raw.Name, err)
			continue
		}
		docs = append(docs, doc)
	}
	for err := range errsChan {
		cmd.PrintErrf("Warning: %v\n", err)
	}
	return docs, skipped
}

// watchDirectory applies file changes until the command context ends.
func watchDirectory(cmd *cobra.Command, rag driving.RAGService, conn *filesystem.Connector) error {
	ctx := cmd.Context()
	changes, err := conn.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", conn.Root(), err)
	}
	defer conn.Close()

	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", conn.Root())

	for change := range changes {
		id := conn.DocumentID(change.Content.Name)

		if change.Type == domain.ChangeDeleted {
			result, err := rag.RemoveDocument(ctx, id, syncDomain)
			if err != nil {
				cmd.PrintErrf("Warning: remove %s: %v\n", id, err)
				continue
			}
			if result.ChunkCount > 0 {
				cmd.Printf("Removed %s (%d chunks)\n", id, result.ChunkCount)
			}
			continue
		}

		doc, err := fileDocument(ctx, conn, change.Content)
		if err != nil {
			logger.Debug("sync: skipping %s: %v", change.Content.Name, err)
			continue
		}
		result, err := rag.AddDocument(ctx, doc)
		if err != nil {
			cmd.PrintErrf("Warning: index %s: %v\n", id, err)
			continue
		}
		cmd.Printf("Indexed %s (%d chunks)\n", id, result.ChunkCount)
	}
	return nil
}

// fileDocument extracts a file's text and builds its document.
func fileDocument(ctx context.Context, conn *filesystem.Connector, raw domain.RawContent) (domain.Document, error) {
	extracted := &domain.ExtractedText{Text: string(raw.Data)}
	if extractor != nil {
		var err error
		if extracted, err = extractor.Extract(ctx, &raw); err != nil {
			return domain.Document{}, err
		}
	}

	return domain.Document{
		ID:      conn.DocumentID(raw.Name),
		Content: extracted.Text,
		Metadata: domain.DocumentMetadata{
			Domain:      syncDomain,
			Source:      syncSource,
			ContentType: firstNonEmpty(extracted.Format, "text"),
			Title:       firstNonEmpty(extracted.Title, fileTitle(raw.Name)),
			Author:      extracted.Author,
		},
	}, nil
}
