package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui"
)

var tuiDomain string

// runTUIApp runs the program. Tests replace it to avoid taking over the terminal.
var runTUIApp = func(app *tui.App) error {
	return app.Run()
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Ask questions in an interactive terminal UI",
	Long: `Launch an interactive screen for asking questions of a domain.

Controls:
  enter    - Ask
  tab      - Switch between question and domain
  ↑/k, ↓/j - Browse the cited sources
  esc      - New question
  ctrl+s   - Refresh store status
  ctrl+c   - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiDomain, "domain", "d", "", "domain to pre-fill")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	rag, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{RAG: rag}, tuiDomain)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := runTUIApp(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
