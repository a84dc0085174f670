// Package answer turns retrieval hits into prompt context, citations, and
// a final grounded reply.
package answer

import (
	"fmt"
	"strings"

	"github.com/leasedesk/leasedesk/internal/store"
)

const (
	// DefaultContextBudget caps prompt context length in characters.
	DefaultContextBudget = 6000

	// MaxCitations caps the number of references shown to the user.
	MaxCitations = 8

	// NotFoundReply is returned when retrieval produced nothing.
	NotFoundReply = "I couldn't find this in your documents."
)

// BuildContext renders hits as numbered context lines within the character
// budget. Numbering follows the hit's position in the input, so the numbers
// stay aligned with citations even when empty hits are skipped. Lines are
// atomic: a line that would cross the budget is dropped along with the rest.
func BuildContext(hits []*store.SearchHit, budget int) string {
	if budget <= 0 {
		budget = DefaultContextBudget
	}

	var b strings.Builder
	used := 0
	for i, h := range hits {
		if strings.TrimSpace(h.Text) == "" {
			continue
		}
		line := fmt.Sprintf("[%d] (%s p.%d) %s", i+1, h.File, h.Page, h.Text)
		cost := len([]rune(line))
		if used > 0 {
			cost++
		}
		if used+cost > budget {
			break
		}
		if used > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
		used += cost
	}
	return b.String()
}

// Citations formats a deduplicated reference line from the hits. Duplicate
// (file, page) pairs keep their first occurrence; at most MaxCitations
// entries are shown. Returns "" when there are no hits.
func Citations(hits []*store.SearchHit) string {
	type key struct {
		file string
		page int
	}
	seen := make(map[key]struct{})
	var refs []string
	for _, h := range hits {
		k := key{h.File, h.Page}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		refs = append(refs, fmt.Sprintf("%s p.%d", h.File, h.Page))
		if len(refs) == MaxCitations {
			break
		}
	}
	if len(refs) == 0 {
		return ""
	}
	return "References: [" + strings.Join(refs, "; ") + "]"
}
