package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leasedesk/leasedesk/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	unit     string
	k        int
	format   string // "text", "json"
	noVector bool
}

type searchOutput struct {
	Tier string            `json:"tier"`
	Hits []searchOutputHit `json:"hits"`
}

type searchOutputHit struct {
	File  string  `json:"file"`
	Page  int     `json:"page"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search ingested documents",
		Long: `Search ingested documents with tiered retrieval.

Semantic search runs first; if it yields nothing (or the embedding
service is down), keyword search takes over, first within the unit
scope and then across all units.

Examples:
  leasedesk search "late fee policy" --unit A-101
  leasedesk search "security deposit" --k 3
  leasedesk search "pet policy" --no-vector --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			result, _, err := app.engine.Search(cmd.Context(), query, search.Options{
				UnitScope: opts.unit,
				K:         opts.k,
				NoVector:  opts.noVector,
			})
			if err != nil {
				return err
			}

			if opts.format == "json" {
				return writeSearchJSON(cmd, result)
			}
			writeSearchText(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.unit, "unit", "u", "", "Restrict to a unit scope (e.g., A-101)")
	cmd.Flags().IntVarP(&opts.k, "k", "n", search.DefaultK, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.noVector, "no-vector", false, "Skip semantic search, use keyword search only")

	return cmd
}

func writeSearchJSON(cmd *cobra.Command, result *search.TierResult) error {
	out := searchOutput{Tier: string(result.Tier), Hits: []searchOutputHit{}}
	for _, h := range result.Hits {
		out.Hits = append(out.Hits, searchOutputHit{
			File: h.File, Page: h.Page, Score: h.Score, Text: h.Text,
		})
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeSearchText(cmd *cobra.Command, result *search.TierResult) {
	w := cmd.OutOrStdout()
	if len(result.Hits) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	fmt.Fprintf(w, "%d results (%s tier)\n\n", len(result.Hits), result.Tier)
	for i, h := range result.Hits {
		fmt.Fprintf(w, "%d. %s p.%d (score %.3f)\n   %s\n", i+1, h.File, h.Page, h.Score, snippet(h.Text, 200))
	}
}

// snippet truncates text for terminal display at a rune boundary.
func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
