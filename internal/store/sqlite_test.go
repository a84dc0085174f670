package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func saveTestDocument(t *testing.T, s *SQLiteStore, id, name, scope string) {
	t.Helper()
	require.NoError(t, s.SaveDocument(context.Background(), &Document{
		ID:         id,
		Name:       name,
		UnitScope:  scope,
		Kind:       "lease",
		Version:    1,
		UploadedAt: time.Now(),
	}))
}

func TestChunkID_Deterministic(t *testing.T) {
	assert.Equal(t, "doc1:3:0", ChunkID("doc1", 3, 0))
	assert.Equal(t, ChunkID("doc1", 3, 0), ChunkID("doc1", 3, 0))
}

func TestSaveDocument_UpsertsByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveTestDocument(t, s, "d1", "lease.pdf", "A-101")
	saveTestDocument(t, s, "d1", "lease-v2.pdf", "A-101")

	docs, err := s.ListDocuments(ctx, "A-101")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "lease-v2.pdf", docs[0].Name)
}

func TestSaveChunks_UpsertNotDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, s, "d1", "lease.pdf", "A-101")

	chunk := &Chunk{ID: ChunkID("d1", 1, 0), DocID: "d1", Page: 1, Index: 0, Text: "rent is due"}
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{chunk}))

	// Re-ingest with changed text: one row per id afterwards.
	chunk.Text = "rent is due monthly"
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{chunk}))

	chunks, err := s.ChunksByScope(ctx, "A-101")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "rent is due monthly", chunks[0].Text)
	assert.Equal(t, "lease.pdf", chunks[0].FileName)
	assert.Equal(t, "A-101", chunks[0].UnitScope)
}

func TestGetChunks_PreservesRequestedOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, s, "d1", "lease.pdf", "A-101")

	var ids []string
	var chunks []*Chunk
	for i := 0; i < 3; i++ {
		c := &Chunk{ID: ChunkID("d1", 1, i), DocID: "d1", Page: 1, Index: i, Text: fmt.Sprintf("chunk %d", i)}
		chunks = append(chunks, c)
		ids = append(ids, c.ID)
	}
	require.NoError(t, s.SaveChunks(ctx, chunks))

	// Request in reverse, expect reverse back; unknown ids are skipped.
	got, err := s.GetChunks(ctx, []string{ids[2], "missing", ids[0]})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[0], got[1].ID)
}

func TestSearchCandidates_ScopedAndUnscoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, s, "d1", "lease-a.pdf", "A-101")
	saveTestDocument(t, s, "d2", "lease-b.pdf", "B-202")

	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{ID: ChunkID("d1", 1, 0), DocID: "d1", Page: 1, Index: 0, Text: "There is a leak in the kitchen."},
		{ID: ChunkID("d2", 1, 0), DocID: "d2", Page: 1, Index: 0, Text: "Report any leak to the landlord."},
	}))

	scoped, err := s.SearchCandidates(ctx, []string{"leak"}, "A-101", 200)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "A-101", scoped[0].UnitScope)

	all, err := s.SearchCandidates(ctx, []string{"leak"}, "", 200)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSearchCandidates_LikeWildcardsAreLiteral(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, s, "d1", "lease.pdf", "A-101")

	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{ID: ChunkID("d1", 1, 0), DocID: "d1", Page: 1, Index: 0, Text: "late fee is 5% of rent"},
		{ID: ChunkID("d1", 1, 1), DocID: "d1", Page: 1, Index: 1, Text: "nothing relevant here"},
	}))

	// "%" must match the literal percent sign, not act as a wildcard.
	got, err := s.SearchCandidates(ctx, []string{"5%"}, "", 200)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Text, "5%")
}

func TestSaveVectors_RoundTripAndUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, s, "d1", "lease.pdf", "A-101")
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{ID: ChunkID("d1", 1, 0), DocID: "d1", Page: 1, Index: 0, Text: "rent"},
	}))

	rec := &VectorRecord{
		ChunkID:   ChunkID("d1", 1, 0),
		UnitScope: "A-101",
		Dims:      3,
		Vector:    []float32{0.1, -0.5, 1.25},
	}
	require.NoError(t, s.SaveVectors(ctx, []*VectorRecord{rec}))

	// Overwrite with a new vector; still one row.
	rec.Vector = []float32{1, 0, 0}
	require.NoError(t, s.SaveVectors(ctx, []*VectorRecord{rec}))

	recs, err := s.VectorsByScope(ctx, "A-101")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []float32{1, 0, 0}, recs[0].Vector)

	count, err := s.VectorCount(ctx, "A-101")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	scopes, err := s.VectorScopes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-101"}, scopes)
}

func TestSaveVectors_DimsMismatchRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, s, "d1", "lease.pdf", "A-101")
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{ID: ChunkID("d1", 1, 0), DocID: "d1", Page: 1, Index: 0, Text: "rent"},
	}))

	err := s.SaveVectors(ctx, []*VectorRecord{{
		ChunkID: ChunkID("d1", 1, 0), UnitScope: "A-101", Dims: 4, Vector: []float32{1, 2},
	}})
	assert.Error(t, err)
}

func TestStats_CountsRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, s, "d1", "lease.pdf", "A-101")
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{ID: ChunkID("d1", 1, 0), DocID: "d1", Page: 1, Index: 0, Text: "rent"},
		{ID: ChunkID("d1", 1, 1), DocID: "d1", Page: 1, Index: 1, Text: "deposit"},
	}))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Documents)
	assert.Equal(t, 2, st.Chunks)
	assert.Equal(t, 0, st.Vectors)
}

func TestSortHits_ScoreThenLength(t *testing.T) {
	hits := []*SearchHit{
		{File: "a.pdf", Page: 1, Text: "long text with one match", Score: 1},
		{File: "b.pdf", Page: 2, Text: "two two", Score: 2},
		{File: "c.pdf", Page: 3, Text: "hit", Score: 1},
	}
	SortHits(hits)

	assert.Equal(t, "b.pdf", hits[0].File)
	assert.Equal(t, "c.pdf", hits[1].File, "equal scores prefer shorter text")
	assert.Equal(t, "a.pdf", hits[2].File)
}

func TestClose_Idempotent(t *testing.T) {
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Stats(context.Background())
	assert.Error(t, err)
}
