package chunk

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner abstracts subprocess execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PdftotextExtractor shells out to the poppler pdftotext binary. It is the
// fallback for scanned or oddly encoded PDFs the pure Go parser cannot read.
type PdftotextExtractor struct {
	runner CommandRunner
}

var _ PageExtractor = (*PdftotextExtractor)(nil)

func NewPdftotextExtractor() *PdftotextExtractor {
	return &PdftotextExtractor{runner: execRunner{}}
}

// NewPdftotextExtractorWithRunner is used by tests to stub the subprocess.
func NewPdftotextExtractorWithRunner(r CommandRunner) *PdftotextExtractor {
	return &PdftotextExtractor{runner: r}
}

func (e *PdftotextExtractor) Name() string { return "pdftotext" }

// Extract writes raw bytes to a temp file, runs pdftotext, and splits the
// layout-preserving output on form feeds into pages numbered from 1.
func (e *PdftotextExtractor) Extract(ctx context.Context, raw []byte) ([]Page, error) {
	tmp, err := os.CreateTemp("", "leasedesk-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	out, err := e.runner.Run(ctx, "pdftotext", "-layout", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("run pdftotext: %w", err)
	}

	// pdftotext emits a form feed after every page.
	parts := strings.Split(string(out), "\f")
	pages := make([]Page, 0, len(parts))
	for i, part := range parts {
		if i == len(parts)-1 && strings.TrimSpace(part) == "" {
			break
		}
		pages = append(pages, Page{Number: i + 1, Text: part})
	}
	return pages, nil
}
