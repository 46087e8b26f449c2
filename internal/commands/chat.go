package commands

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"medrag/internal/tui"
)

// chatCmd starts the interactive assistant. Logs go to data.log_path since the terminal
// belongs to the UI.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logPath := currentConfig.Data.LogPath
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return err
		}
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer logFile.Close()

		a, err := newApp(logFile)
		if err != nil {
			return err
		}
		m := tui.New(cmd.Context(), a.Assistant, a.Excerpter)
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
