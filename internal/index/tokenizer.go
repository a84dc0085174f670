// Package index implements the two retrieval indexes: a lexical substring
// index backed by SQLite and an in-memory HNSW vector index with lazy
// backfill from stored vectors.
package index

import (
	"regexp"
	"strings"
)

// tokenPattern matches lowercase Latin/digit runs and CJK ideograph runs.
var tokenPattern = regexp.MustCompile(`[a-z0-9]+|\p{Han}+`)

// stopWords are high-frequency terms that would match nearly every chunk.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "and": {}, "or": {},
	"to": {}, "for": {}, "is": {}, "are": {}, "on": {}, "in": {},
	"at": {}, "by": {}, "with": {}, "when": {}, "what": {}, "how": {},
}

// Tokenize lowercases the query and extracts search tokens. Latin tokens
// shorter than two characters and stop words are dropped. If filtering
// removes everything, the whole trimmed query is used as a single token so
// short or symbol-heavy queries still match literally.
func Tokenize(query string) []string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}
	lowered := strings.ToLower(trimmed)

	var tokens []string
	for _, tok := range tokenPattern.FindAllString(lowered, -1) {
		if isLatin(tok) && len(tok) < 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}

	if len(tokens) == 0 {
		return []string{lowered}
	}
	return tokens
}

func isLatin(tok string) bool {
	for _, r := range tok {
		if r > 'z' {
			return false
		}
	}
	return true
}
