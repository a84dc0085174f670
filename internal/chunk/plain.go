package chunk

import "context"

// PlainTextExtractor treats the raw bytes as a single page of UTF-8 text.
// Used for .txt and .md uploads.
type PlainTextExtractor struct{}

var _ PageExtractor = (*PlainTextExtractor)(nil)

func (PlainTextExtractor) Name() string { return "plain" }

func (PlainTextExtractor) Extract(_ context.Context, raw []byte) ([]Page, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return []Page{{Number: 1, Text: string(raw)}}, nil
}
