package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fortyoneai/omni-core/core/memories/sqlitevec"
	"github.com/fortyoneai/omni-core/internal/config"
)

var memoriesLimit int

var memoriesCmd = &cobra.Command{
	Use:   "memories",
	Short: "List the most recent long-term memories",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Listing never embeds, so the store opens without an embedder.
		store, err := sqlitevec.Open(cfg.MemoryDBPath, nil)
		if err != nil {
			return fmt.Errorf("failed to open memory store: %w", err)
		}
		defer store.Close()

		recent, err := store.Recent(cmd.Context(), memoriesLimit)
		if err != nil {
			return fmt.Errorf("failed to list memories: %w", err)
		}

		kindStyle := lipgloss.NewStyle().Bold(true).Width(12)
		timeStyle := lipgloss.NewStyle().Faint(true)
		for _, memory := range recent {
			fmt.Fprintf(os.Stdout, "%s %s %s\n",
				timeStyle.Render(memory.CreatedAt.Format("2006-01-02 15:04")),
				kindStyle.Render(string(memory.Kind)),
				memory.Content,
			)
		}
		return nil
	},
}

func init() {
	memoriesCmd.Flags().IntVar(&memoriesLimit, "limit", 20, "number of memories to list")
	rootCmd.AddCommand(memoriesCmd)
}
