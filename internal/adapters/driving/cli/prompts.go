package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect the LLM prompt templates",
	Long: `List and show the prompt templates used for query planning and synthesis.

Templates live in the prompts directory under the config directory. Edit a
file there to customise it; running servers pick up changes automatically.`,
	RunE: runPromptsList,
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompt templates and their files",
	RunE:  runPromptsList,
}

var promptsShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print a prompt template",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsShow,
}

var promptsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the prompts directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if promptFiles == nil {
			return errors.New("prompt store not configured")
		}
		cmd.Println(promptFiles.Dir())
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsPathCmd)
	rootCmd.AddCommand(promptsCmd)
}

func runPromptsList(cmd *cobra.Command, _ []string) error {
	if promptFiles == nil {
		return errors.New("prompt store not configured")
	}

	for _, name := range driven.PromptNames() {
		cmd.Printf("%-12s %s\n", name, promptFiles.Path(name))
	}
	return nil
}

func runPromptsShow(cmd *cobra.Command, args []string) error {
	if promptFiles == nil {
		return errors.New("prompt store not configured")
	}

	name := args[0]
	if !slices.Contains(driven.PromptNames(), name) {
		return fmt.Errorf("unknown prompt %q", name)
	}

	text, err := promptFiles.Load(name)
	if err != nil {
		return fmt.Errorf("failed to load prompt: %w", err)
	}
	cmd.Print(text)
	return nil
}
