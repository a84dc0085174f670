// Package chunk turns raw document bytes into an ordered sequence of bounded,
// overlapping text windows tagged with document, page, and unit metadata.
package chunk

import "context"

// Chunking defaults. Window and overlap are measured in characters (runes).
const (
	// DefaultWindowChars is the chunk window length.
	DefaultWindowChars = 1000

	// DefaultOverlapChars is the overlap between consecutive windows.
	DefaultOverlapChars = 150

	// DefaultMaxPageChars hard-truncates a single normalized page.
	// Bounds memory for pathological pages.
	DefaultMaxPageChars = 200_000

	// DefaultMaxDocChars stops page processing once the running total of
	// normalized characters exceeds the ceiling.
	DefaultMaxDocChars = 2_000_000

	// DefaultMaxChunksPerPage is the fuse against pathological single pages.
	DefaultMaxChunksPerPage = 2000

	// minPrimaryChars is the non-whitespace character threshold below which
	// the secondary extractor takes over for the whole document.
	minPrimaryChars = 50
)

// Page is one page of extracted text. Numbers are 1-indexed.
type Page struct {
	Number int
	Text   string
}

// PageExtractor extracts per-page text from raw document bytes.
type PageExtractor interface {
	// Extract returns pages in order. Implementations may return partial
	// pages alongside an error; callers treat failures as empty text.
	Extract(ctx context.Context, raw []byte) ([]Page, error)

	// Name identifies the extractor in logs.
	Name() string
}

// Options configure a Chunker. Zero values take the package defaults.
type Options struct {
	WindowChars      int
	OverlapChars     int
	MaxPageChars     int
	MaxDocChars      int
	MaxChunksPerPage int
}

func (o Options) withDefaults() Options {
	if o.WindowChars <= 0 {
		o.WindowChars = DefaultWindowChars
	}
	if o.OverlapChars < 0 || o.OverlapChars >= o.WindowChars {
		o.OverlapChars = DefaultOverlapChars
		if o.OverlapChars >= o.WindowChars {
			o.OverlapChars = o.WindowChars / 4
		}
	}
	if o.MaxPageChars <= 0 {
		o.MaxPageChars = DefaultMaxPageChars
	}
	if o.MaxDocChars <= 0 {
		o.MaxDocChars = DefaultMaxDocChars
	}
	if o.MaxChunksPerPage <= 0 {
		o.MaxChunksPerPage = DefaultMaxChunksPerPage
	}
	return o
}
