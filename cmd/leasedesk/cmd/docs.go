package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDocsCmd() *cobra.Command {
	var unit string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List ingested documents",
		Long: `List ingested documents, newest first, optionally filtered by unit.

Examples:
  leasedesk docs
  leasedesk docs --unit A-101 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			docs, err := app.store.ListDocuments(cmd.Context(), unit)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(docs)
			}

			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tUNIT\tKIND\tPAGES\tUPLOADED")
			for _, d := range docs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					d.ID, d.Name, d.UnitScope, d.Kind, d.PageCount,
					d.UploadedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&unit, "unit", "u", "", "Filter by unit scope (e.g., A-101)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output documents as JSON")

	return cmd
}
