package commands

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/tui"
)

// NewBoardCmd builds the `board` command, which launches the interactive
// terminal board.
func NewBoardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive task board",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(slog.Default())
			if err != nil {
				return err
			}
			defer app.Close()

			ui := tui.NewApp(app.Projects, app.Board, app.Config.Client.SearchDebounce)
			program := tea.NewProgram(ui, tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("run board ui: %w", err)
			}
			return nil
		},
	}
}
