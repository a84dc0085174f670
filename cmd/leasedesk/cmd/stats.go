package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long:  `Show how many documents, chunks, and vectors are stored.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]int{
					"documents": stats.Documents,
					"chunks":    stats.Chunks,
					"vectors":   stats.Vectors,
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Database:  %s\n", app.cfg.DatabasePath())
			fmt.Fprintf(w, "Documents: %d\n", stats.Documents)
			fmt.Fprintf(w, "Chunks:    %d\n", stats.Chunks)
			fmt.Fprintf(w, "Vectors:   %d\n", stats.Vectors)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output stats as JSON")

	return cmd
}
