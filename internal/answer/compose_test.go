package answer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leasedesk/leasedesk/internal/store"
)

func hit(file string, page int, text string) *store.SearchHit {
	return &store.SearchHit{File: file, Page: page, Text: text}
}

func TestBuildContextNumbersFollowInputPosition(t *testing.T) {
	hits := []*store.SearchHit{
		hit("lease.pdf", 1, "Rent is due monthly."),
		hit("lease.pdf", 2, "   "),
		hit("addendum.pdf", 1, "Pets require approval."),
	}

	got := BuildContext(hits, 0)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[1] (lease.pdf p.1) Rent is due monthly.", lines[0])
	// The blank hit is skipped but keeps its number.
	assert.Equal(t, "[3] (addendum.pdf p.1) Pets require approval.", lines[1])
}

func TestBuildContextRespectsBudget(t *testing.T) {
	hits := []*store.SearchHit{
		hit("a.pdf", 1, strings.Repeat("x", 50)),
		hit("a.pdf", 2, strings.Repeat("y", 50)),
		hit("a.pdf", 3, strings.Repeat("z", 50)),
	}
	// Each line is 50 + len("[n] (a.pdf p.n) ") = 66 chars.
	got := BuildContext(hits, 140)
	lines := strings.Split(got, "\n")
	assert.Len(t, lines, 2)
	assert.LessOrEqual(t, len([]rune(got)), 140)
}

func TestBuildContextLineAtomic(t *testing.T) {
	hits := []*store.SearchHit{
		hit("a.pdf", 1, "short"),
		hit("a.pdf", 2, strings.Repeat("long", 100)),
	}
	got := BuildContext(hits, 50)
	// The oversized second line is dropped entirely, never truncated.
	assert.Equal(t, "[1] (a.pdf p.1) short", got)
}

func TestBuildContextEmpty(t *testing.T) {
	assert.Equal(t, "", BuildContext(nil, 0))
	assert.Equal(t, "", BuildContext([]*store.SearchHit{hit("a.pdf", 1, " ")}, 0))
}

func TestCitationsDedupesAndCaps(t *testing.T) {
	hits := []*store.SearchHit{
		hit("lease.pdf", 1, "a"),
		hit("lease.pdf", 1, "b"),
		hit("lease.pdf", 2, "c"),
	}
	assert.Equal(t, "References: [lease.pdf p.1; lease.pdf p.2]", Citations(hits))

	var many []*store.SearchHit
	for i := 1; i <= 12; i++ {
		many = append(many, hit("big.pdf", i, "t"))
	}
	got := Citations(many)
	assert.Equal(t, MaxCitations, strings.Count(got, "big.pdf"))
	assert.Contains(t, got, fmt.Sprintf("big.pdf p.%d]", MaxCitations))
}

func TestCitationsEmpty(t *testing.T) {
	assert.Equal(t, "", Citations(nil))
}
