package chunk

import (
	"context"
	"log/slog"
	"strings"

	"github.com/leasedesk/leasedesk/internal/store"
)

// Chunker splits documents into overlapping fixed-length windows.
// Extraction failures degrade to empty pages; Chunk never returns an error.
type Chunker struct {
	primary   PageExtractor
	secondary PageExtractor
	opts      Options
}

// New creates a Chunker with a primary extractor and an optional secondary
// extractor used when the primary yields too little text.
func New(primary, secondary PageExtractor, opts Options) *Chunker {
	return &Chunker{
		primary:   primary,
		secondary: secondary,
		opts:      opts.withDefaults(),
	}
}

// Chunk turns raw document bytes into ordered chunks. Re-chunking the same
// document with the same options yields identical ids and text.
func (c *Chunker) Chunk(ctx context.Context, docID, fileName, unitScope string, raw []byte) []*store.Chunk {
	if len(raw) == 0 {
		return nil
	}

	pages := c.extractPages(ctx, raw)

	var chunks []*store.Chunk
	totalChars := 0
	for _, page := range pages {
		norm := c.normalize(page.Text)
		totalChars += len([]rune(norm))
		if totalChars > c.opts.MaxDocChars {
			slog.Warn("chunking_doc_ceiling_reached",
				slog.String("doc_id", docID),
				slog.Int("page", page.Number),
				slog.Int("total_chars", totalChars))
			break
		}

		windows := c.windows(norm)
		for i, text := range windows {
			chunks = append(chunks, &store.Chunk{
				ID:        store.ChunkID(docID, page.Number, i),
				DocID:     docID,
				UnitScope: unitScope,
				FileName:  fileName,
				Page:      page.Number,
				Index:     i,
				Text:      text,
			})
		}
		if len(windows) > c.opts.MaxChunksPerPage {
			slog.Warn("chunking_page_fuse_tripped",
				slog.String("doc_id", docID),
				slog.Int("page", page.Number),
				slog.Int("chunks", len(windows)))
		}
	}

	return chunks
}

// extractPages runs the primary extractor and falls back to the secondary
// when the primary yields fewer than minPrimaryChars non-whitespace characters.
func (c *Chunker) extractPages(ctx context.Context, raw []byte) []Page {
	pages, err := c.primary.Extract(ctx, raw)
	if err != nil {
		slog.Warn("extraction_primary_failed",
			slog.String("extractor", c.primary.Name()),
			slog.String("error", err.Error()))
		pages = nil
	}

	if countNonWhitespace(pages) >= minPrimaryChars {
		return pages
	}

	if c.secondary == nil {
		return pages
	}

	fallback, err := c.secondary.Extract(ctx, raw)
	if err != nil {
		slog.Warn("extraction_secondary_failed",
			slog.String("extractor", c.secondary.Name()),
			slog.String("error", err.Error()))
		// Whatever the primary produced is still better than nothing.
		return pages
	}
	return fallback
}

func countNonWhitespace(pages []Page) int {
	total := 0
	for _, p := range pages {
		for _, r := range p.Text {
			if !isSpace(r) {
				total++
			}
		}
	}
	return total
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r', 0x85, 0xA0:
		return true
	}
	return false
}

// normalize replaces NUL bytes with spaces, collapses whitespace runs to
// single spaces, trims, and hard-truncates to the per-page ceiling.
func (c *Chunker) normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > c.opts.MaxPageChars {
		runes = runes[:c.opts.MaxPageChars]
		text = string(runes)
	}
	return text
}

// windows produces overlapping fixed-length windows over the normalized text.
// The window start advances by WindowChars-OverlapChars each step; the final
// window may be shorter. Stops early once the per-page fuse trips.
func (c *Chunker) windows(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := c.opts.WindowChars - c.opts.OverlapChars
	var out []string
	for i := 0; i < n; i += step {
		j := i + c.opts.WindowChars
		if j > n {
			j = n
		}
		out = append(out, string(runes[i:j]))
		if j >= n {
			break
		}
		if len(out) > c.opts.MaxChunksPerPage {
			break
		}
	}
	return out
}
