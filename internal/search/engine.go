// Package search orchestrates tiered retrieval: semantic search first,
// then scoped lexical search, then an unscoped lexical sweep.
package search

import (
	"context"
	"log/slog"
	"strings"

	deskerrors "github.com/leasedesk/leasedesk/internal/errors"
	"github.com/leasedesk/leasedesk/internal/store"
)

// Tier identifies which retrieval strategy produced a result.
type Tier string

const (
	TierVector          Tier = "vector"
	TierLexical         Tier = "lexical"
	TierLexicalUnscoped Tier = "lexical_unscoped"
	TierNone            Tier = "none"
)

// DefaultK is the number of hits requested when the caller does not specify.
const DefaultK = 5

// Searcher answers a query within an optional unit scope.
type Searcher interface {
	Search(ctx context.Context, query, unitScope string, k int) ([]*store.SearchHit, error)
}

// TierResult reports the outcome of one retrieval attempt. A tier that
// failed carries its error here instead of aborting the ladder; the caller
// can log or surface it while later tiers still run.
type TierResult struct {
	Tier Tier
	Hits []*store.SearchHit
	Err  error
}

// Options control a single retrieval call.
type Options struct {
	UnitScope string
	K         int
	// NoVector skips the semantic tier, forcing lexical-only retrieval.
	NoVector bool
}

// Engine walks the retrieval ladder until a tier yields hits. Tiers degrade
// rather than fail: an error in one tier is recorded and the next tier runs.
type Engine struct {
	vector  Searcher
	lexical Searcher
	logger  *slog.Logger
}

// NewEngine builds an engine from the two indexes. A nil vector searcher
// disables the semantic tier entirely.
func NewEngine(vector, lexical Searcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{vector: vector, lexical: lexical, logger: logger}
}

// Search runs the ladder and returns the first non-empty tier. The returned
// slice of TierResult records every tier that ran, in order, including
// failed ones. The final result's Tier is TierNone when nothing matched.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (*TierResult, []TierResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil, deskerrors.New(deskerrors.ErrCodeEmptyQuery, "query must not be empty", nil)
	}
	k := opts.K
	if k <= 0 {
		k = DefaultK
	}

	var attempts []TierResult

	run := func(tier Tier, s Searcher, scope string) *TierResult {
		hits, err := s.Search(ctx, query, scope, k)
		result := TierResult{Tier: tier, Hits: hits, Err: err}
		attempts = append(attempts, result)
		if err != nil {
			e.logger.Warn("search_tier_failed",
				slog.String("tier", string(tier)),
				slog.String("error", err.Error()))
			return nil
		}
		if len(hits) == 0 {
			return nil
		}
		e.logger.Debug("search_tier_hit",
			slog.String("tier", string(tier)),
			slog.Int("hits", len(hits)))
		return &result
	}

	if e.vector != nil && !opts.NoVector {
		if err := ctx.Err(); err != nil {
			return nil, attempts, err
		}
		if r := run(TierVector, e.vector, opts.UnitScope); r != nil {
			return r, attempts, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, attempts, err
	}
	if r := run(TierLexical, e.lexical, opts.UnitScope); r != nil {
		return r, attempts, nil
	}

	// The widening sweep only makes sense when a scope was requested.
	if opts.UnitScope != "" {
		if err := ctx.Err(); err != nil {
			return nil, attempts, err
		}
		if r := run(TierLexicalUnscoped, e.lexical, ""); r != nil {
			return r, attempts, nil
		}
	}

	return &TierResult{Tier: TierNone}, attempts, nil
}
