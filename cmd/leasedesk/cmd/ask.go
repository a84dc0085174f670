package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leasedesk/leasedesk/internal/search"
)

func newAskCmd() *cobra.Command {
	var unit string
	var k int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about ingested documents",
		Long: `Ask a question and get an answer grounded in the ingested documents,
with page-level citations.

When no generation endpoint is configured (or it is down), the reply
degrades to the citations alone so you still know where to look.

Examples:
  leasedesk ask "when is rent due?" --unit A-101
  leasedesk ask "what does the lease say about subletting?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			result, _, err := app.engine.Search(cmd.Context(), question, search.Options{
				UnitScope: unit,
				K:         k,
			})
			if err != nil {
				return err
			}

			reply := app.answerer.Answer(cmd.Context(), question, unit, result.Hits)
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}

	cmd.Flags().StringVarP(&unit, "unit", "u", "", "Restrict to a unit scope (e.g., A-101)")
	cmd.Flags().IntVarP(&k, "k", "n", search.DefaultK, "Number of excerpts to retrieve")

	return cmd
}
