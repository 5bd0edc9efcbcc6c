package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline status and document counts",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	rag, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}

	status, err := rag.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	ready := "no"
	if status.IsReady {
		ready = "yes"
	}
	cmd.Printf("Ready: %s\n", ready)
	cmd.Printf("Vector store: %s (%d dimensions)\n", status.VectorBackend, status.VectorDimensions)
	cmd.Printf("Embedding model: %s\n", status.EmbeddingModel)
	if status.CompletionModel != "" {
		cmd.Printf("Language model: %s\n", status.CompletionModel)
	} else {
		cmd.Println("Language model: (not configured)")
	}
	cmd.Printf("Documents: %d\n", status.DocumentCount)

	names := make([]string, 0, len(status.Namespaces))
	for name := range status.Namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd.Printf("  %s: %d\n", name, status.Namespaces[name])
	}
	return nil
}
