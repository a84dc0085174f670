package index

import (
	"context"
	"log/slog"
	"strings"

	"github.com/leasedesk/leasedesk/internal/store"
)

// DefaultCandidateLimit bounds the number of chunks pulled from storage
// before in-memory scoring.
const DefaultCandidateLimit = 200

// LexicalIndex scores chunks by token occurrence counts. It reads candidates
// straight from the store, so it needs no warm-up and works without any
// embedding service.
type LexicalIndex struct {
	store store.Store
}

func NewLexicalIndex(s store.Store) *LexicalIndex {
	return &LexicalIndex{store: s}
}

// Search tokenizes the query, pulls candidate chunks containing any token,
// and ranks them by the total number of token occurrences. Ties break on
// shorter text. Empty unitScope searches across all units.
func (l *LexicalIndex) Search(ctx context.Context, query, unitScope string, k int) ([]*store.SearchHit, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	candidates, err := l.store.SearchCandidates(ctx, tokens, unitScope, DefaultCandidateLimit)
	if err != nil {
		return nil, err
	}

	hits := make([]*store.SearchHit, 0, len(candidates))
	for _, c := range candidates {
		lowered := strings.ToLower(c.Text)
		score := 0
		for _, tok := range tokens {
			score += strings.Count(lowered, tok)
		}
		if score == 0 {
			continue
		}
		hits = append(hits, &store.SearchHit{
			File:  c.FileName,
			Page:  c.Page,
			Text:  c.Text,
			Score: float64(score),
		})
	}

	store.SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}

	slog.Debug("lexical_search_done",
		slog.Int("tokens", len(tokens)),
		slog.Int("candidates", len(candidates)),
		slog.Int("hits", len(hits)),
		slog.String("unit_scope", unitScope))
	return hits, nil
}
