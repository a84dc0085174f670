package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/leasedesk/leasedesk/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	var unit string
	var kind string

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest documents into the search index",
		Long: `Ingest one or more documents. PDF files are split into pages and
chunked; .txt and .md files are chunked as a single page.

Vector indexing is best effort: if the embedding service is down the
documents are still stored and keyword search works immediately.

Examples:
  leasedesk ingest lease.pdf --unit A-101
  leasedesk ingest notice.pdf addendum.pdf --unit B-202 --kind notice`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}

				fileName := filepath.Base(path)
				res, err := app.ingesterFor(fileName).Ingest(cmd.Context(), ingest.Request{
					FileName:  fileName,
					UnitScope: unit,
					Kind:      kind,
					Raw:       raw,
				})
				if err != nil {
					return fmt.Errorf("ingest %s: %w", path, err)
				}

				fmt.Fprintf(cmd.OutOrStdout(),
					"Ingested %s: %d pages, %d chunks, %d vectors (%s)\n",
					fileName, res.Pages, res.Chunks, res.Vectors,
					res.Duration.Round(time.Millisecond))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&unit, "unit", "u", "", "Unit scope (e.g., A-101)")
	cmd.Flags().StringVarP(&kind, "kind", "k", "lease", "Document kind: lease, addendum, notice")

	return cmd
}
