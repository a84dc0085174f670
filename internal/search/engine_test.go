package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deskerrors "github.com/leasedesk/leasedesk/internal/errors"
	"github.com/leasedesk/leasedesk/internal/store"
)

type fakeSearcher struct {
	hits       []*store.SearchHit
	err        error
	calls      int
	lastScope  string
	scopedOnly bool
}

func (f *fakeSearcher) Search(ctx context.Context, query, unitScope string, k int) ([]*store.SearchHit, error) {
	f.calls++
	f.lastScope = unitScope
	if f.err != nil {
		return nil, f.err
	}
	if f.scopedOnly && unitScope == "" {
		return nil, nil
	}
	return f.hits, nil
}

func someHits(n int) []*store.SearchHit {
	out := make([]*store.SearchHit, n)
	for i := range out {
		out[i] = &store.SearchHit{File: "lease.pdf", Page: i + 1, Text: "text", Score: 1}
	}
	return out
}

func TestEngineVectorTierWins(t *testing.T) {
	vector := &fakeSearcher{hits: someHits(2)}
	lexical := &fakeSearcher{hits: someHits(1)}
	e := NewEngine(vector, lexical, nil)

	result, attempts, err := e.Search(context.Background(), "rent", Options{UnitScope: "A-101"})
	require.NoError(t, err)
	assert.Equal(t, TierVector, result.Tier)
	assert.Len(t, result.Hits, 2)
	assert.Len(t, attempts, 1)
	assert.Zero(t, lexical.calls)
}

func TestEngineFallsToLexicalOnEmptyVector(t *testing.T) {
	vector := &fakeSearcher{}
	lexical := &fakeSearcher{hits: someHits(1)}
	e := NewEngine(vector, lexical, nil)

	result, attempts, err := e.Search(context.Background(), "rent", Options{UnitScope: "A-101"})
	require.NoError(t, err)
	assert.Equal(t, TierLexical, result.Tier)
	assert.Len(t, attempts, 2)
	assert.Equal(t, "A-101", lexical.lastScope)
}

func TestEngineVectorFailureDegrades(t *testing.T) {
	vector := &fakeSearcher{err: errors.New("embedding service down")}
	lexical := &fakeSearcher{hits: someHits(1)}
	e := NewEngine(vector, lexical, nil)

	result, attempts, err := e.Search(context.Background(), "rent", Options{})
	require.NoError(t, err)
	assert.Equal(t, TierLexical, result.Tier)
	require.Len(t, attempts, 2)
	assert.Error(t, attempts[0].Err)
	assert.NoError(t, attempts[1].Err)
}

func TestEngineUnscopedQuerySkipsSweepTier(t *testing.T) {
	vector := &fakeSearcher{}
	empty := &fakeSearcher{}
	e := NewEngine(vector, empty, nil)

	result, attempts, err := e.Search(context.Background(), "rent", Options{})
	require.NoError(t, err)
	assert.Equal(t, TierNone, result.Tier)
	assert.Len(t, attempts, 2)
	assert.Equal(t, 1, empty.calls)
}

func TestEngineWideningSweepFindsCrossUnitHit(t *testing.T) {
	vector := &fakeSearcher{}
	// Empty in the requested scope, non-empty unscoped.
	scoped := &sweepOnlySearcher{hits: someHits(1)}
	e := NewEngine(vector, scoped, nil)

	result, attempts, err := e.Search(context.Background(), "rent", Options{UnitScope: "A-101"})
	require.NoError(t, err)
	assert.Equal(t, TierLexicalUnscoped, result.Tier)
	require.Len(t, attempts, 3)
	assert.Empty(t, attempts[1].Hits)
}

type sweepOnlySearcher struct {
	hits []*store.SearchHit
}

func (s *sweepOnlySearcher) Search(ctx context.Context, query, unitScope string, k int) ([]*store.SearchHit, error) {
	if unitScope == "" {
		return s.hits, nil
	}
	return nil, nil
}

func TestEngineNoVectorOption(t *testing.T) {
	vector := &fakeSearcher{hits: someHits(1)}
	lexical := &fakeSearcher{hits: someHits(1)}
	e := NewEngine(vector, lexical, nil)

	result, _, err := e.Search(context.Background(), "rent", Options{NoVector: true})
	require.NoError(t, err)
	assert.Equal(t, TierLexical, result.Tier)
	assert.Zero(t, vector.calls)
}

func TestEngineNilVectorSearcher(t *testing.T) {
	lexical := &fakeSearcher{hits: someHits(1)}
	e := NewEngine(nil, lexical, nil)

	result, _, err := e.Search(context.Background(), "rent", Options{})
	require.NoError(t, err)
	assert.Equal(t, TierLexical, result.Tier)
}

func TestEngineEmptyQueryRejected(t *testing.T) {
	e := NewEngine(&fakeSearcher{}, &fakeSearcher{}, nil)
	_, _, err := e.Search(context.Background(), "  ", Options{})
	require.Error(t, err)
	assert.Equal(t, deskerrors.ErrCodeEmptyQuery, deskerrors.GetCode(err))
}

func TestEngineContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	vector := &fakeSearcher{}
	lexical := &fakeSearcher{hits: someHits(1)}
	e := NewEngine(vector, lexical, nil)

	_, _, err := e.Search(ctx, "rent", Options{})
	require.Error(t, err)
	assert.Zero(t, vector.calls)
	assert.Zero(t, lexical.calls)
}
