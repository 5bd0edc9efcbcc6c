package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	queryDomain   string
	queryTopK     int
	queryMinScore float64
	queryMaxPer   int
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question from a domain",
	Long: `Answers a natural-language question using only the documents of one domain.

The question is rewritten into a search query with metadata filters, the
closest chunks are retrieved, and a language model answers from them with
[n] citations. Without a language model the most relevant passages are
printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryDomain, "domain", "d", "", "knowledge domain (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "maximum number of passages (default from settings)")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", -1, "minimum similarity in [0,1] (default from settings)")
	queryCmd.Flags().IntVar(&queryMaxPer, "max-per-doc", -1, "most passages from one document, 0 for no cap (default from settings)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryDomain == "" {
		return errors.New("--domain is required")
	}

	rag, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}

	opts := domain.QueryOptions{TopK: queryTopK}
	if queryMinScore >= 0 {
		minScore := queryMinScore
		opts.MinScore = &minScore
	}
	if queryMaxPer >= 0 {
		maxPer := queryMaxPer
		opts.MaxPerDocument = &maxPer
	}

	result, err := rag.Query(cmd.Context(), strings.Join(args, " "), queryDomain, opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	outputQueryText(cmd, result)
	return nil
}

func outputQueryText(cmd *cobra.Command, result *domain.RAGResult) {
	cmd.Println(result.Answer)
	cmd.Println()
	cmd.Printf("Confidence: %.2f\n", result.Confidence)

	if len(result.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, m := range result.Sources {
			title, _ := m.Metadata[domain.MetaTitle].(string)
			if title == "" {
				title = m.DocumentID
			}
			cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, m.Score)
		}
	}

	for _, w := range result.Metadata.Warnings {
		cmd.Printf("Note: %s\n", warningText(w))
	}
}

func warningText(w string) string {
	switch w {
	case domain.WarningPlanningDegraded:
		return "query planning was unavailable; the question was searched as written"
	case domain.WarningRetrievalEmpty:
		return "no passages matched; try --min-score or another domain"
	case domain.WarningExtractiveAnswer:
		return "no language model is configured; run 'sercha-rag settings llm'"
	default:
		return w
	}
}
