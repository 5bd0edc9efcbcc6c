package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var (
	batchDomain string
	batchSource string
	batchJSON   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Add many documents from a YAML or JSON file",
	Long: `Adds documents listed in a YAML or JSON file. The file holds either a list
of documents or an object with a "documents" list:

  documents:
    - id: hiit
      content: High-intensity interval training alternates ...
      metadata:
        domain: fitness
        contentType: article
        tags: [cardio]

Documents without an id get a random one. --domain and --source fill in
metadata the file leaves empty. Files with more than 50 documents are sent
in several batches. A failing document does not stop the others.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchDomain, "domain", "d", "", "domain for documents that do not set one")
	batchCmd.Flags().StringVar(&batchSource, "source", "cli", "source for documents that do not set one")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	docs, err := loadBatchFile(args[0])
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents in %s", args[0])
	}
	for i := range docs {
		applyBatchDefaults(&docs[i])
	}

	rag, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}

	total, err := addInBatches(cmd.Context(), rag, docs)
	if err != nil {
		_ = outputBatchResult(cmd, total, batchJSON)
		return fmt.Errorf("batch failed: %w", err)
	}
	return outputBatchResult(cmd, total, batchJSON)
}

// addInBatches sends docs in batches of at most domain.MaxBatchSize and
// merges the results. It stops at the first batch-level error.
func addInBatches(ctx context.Context, rag driving.RAGService, docs []domain.Document) (domain.BatchResult, error) {
	total := domain.BatchResult{Results: make([]domain.DocumentResult, 0, len(docs))}
	for start := 0; start < len(docs); start += domain.MaxBatchSize {
		end := min(start+domain.MaxBatchSize, len(docs))
		result, err := rag.BatchAddDocuments(ctx, docs[start:end])
		total.Total += result.Total
		total.Successful += result.Successful
		total.Failed += result.Failed
		total.Results = append(total.Results, result.Results...)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// loadBatchFile parses a YAML or JSON document list. JSON is valid YAML,
// so one decoder handles both.
func loadBatchFile(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	var docs []domain.Document
	node := root.Content[0]
	if node.Kind == yaml.MappingNode {
		var wrapper struct {
			Documents []domain.Document `yaml:"documents"`
		}
		if err := node.Decode(&wrapper); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return wrapper.Documents, nil
	}
	if err := node.Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return docs, nil
}

func applyBatchDefaults(doc *domain.Document) {
	if strings.TrimSpace(doc.ID) == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Metadata.Domain == "" {
		doc.Metadata.Domain = batchDomain
	}
	if doc.Metadata.Source == "" {
		doc.Metadata.Source = batchSource
	}
	if doc.Metadata.ContentType == "" {
		doc.Metadata.ContentType = "text"
	}
}

func outputBatchResult(cmd *cobra.Command, result domain.BatchResult, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Processed %d documents: %d succeeded, %d failed\n", result.Total, result.Successful, result.Failed)
	for _, r := range result.Results {
		if r.Failed() {
			cmd.Printf("  %s: %s (%s)\n", r.DocumentID, r.Error, r.ErrorKind)
		}
	}
	return nil
}
