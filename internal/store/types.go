// Package store persists documents, chunks, and embedding vectors in SQLite.
// This is the persistence layer shared by the lexical and vector indexes.
package store

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Document represents one ingested file. Immutable after creation except for
// superseding versions, which are handled by the management layer.
type Document struct {
	ID            string    // UUID assigned at ingest
	Name          string    // Original file name
	UnitScope     string    // Rental unit this document belongs to (e.g., "A-101")
	Kind          string    // lease, addendum, notice, ...
	Version       int       // Superseding version counter, starts at 1
	EffectiveFrom time.Time // Zero if unknown
	PageCount     int
	UploadedAt    time.Time
}

// Chunk is a bounded, overlapping slice of one document page's normalized text.
// IDs are deterministic so re-ingesting the same document upserts rather than
// duplicates.
type Chunk struct {
	ID        string // docID:page:index
	DocID     string
	UnitScope string // Denormalized from the parent document
	FileName  string // Denormalized from the parent document
	Page      int    // 1-indexed page number
	Index     int    // 0-indexed position within the page
	Text      string
}

// ChunkID derives the deterministic chunk identifier.
func ChunkID(docID string, page, index int) string {
	return fmt.Sprintf("%s:%d:%d", docID, page, index)
}

// VectorRecord associates an embedding vector with a chunk.
// Vectors may be deleted and regenerated independently of chunk text.
type VectorRecord struct {
	ChunkID   string
	UnitScope string
	Dims      int
	Vector    []float32
}

// SearchHit is an ephemeral per-query result. Never persisted.
type SearchHit struct {
	File  string
	Page  int
	Text  string
	Score float64
}

// SortHits orders hits by score descending; ties break on shorter text,
// preferring dense matches over long chunks that match incidentally.
func SortHits(hits []*SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return len(hits[i].Text) < len(hits[j].Text)
	})
}

// Stats summarizes store contents for the stats command.
type Stats struct {
	Documents int
	Chunks    int
	Vectors   int
}

// Store persists documents, chunks, and vectors with upsert-by-id semantics
// and scoped range reads.
type Store interface {
	// Document operations
	SaveDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context, unitScope string) ([]*Document, error)

	// Chunk operations. SaveChunks upserts the batch in one transaction.
	SaveChunks(ctx context.Context, chunks []*Chunk) error
	GetChunks(ctx context.Context, ids []string) ([]*Chunk, error)
	ChunksByScope(ctx context.Context, unitScope string) ([]*Chunk, error)

	// SearchCandidates returns chunks whose text contains any of the tokens
	// as a substring (case-insensitive), optionally filtered by scope.
	// Empty unitScope means no scope filter.
	SearchCandidates(ctx context.Context, tokens []string, unitScope string, limit int) ([]*Chunk, error)

	// Vector operations. SaveVectors upserts the batch in one transaction so a
	// partial write cannot leave orphaned rows.
	SaveVectors(ctx context.Context, recs []*VectorRecord) error
	VectorsByScope(ctx context.Context, unitScope string) ([]*VectorRecord, error)
	VectorCount(ctx context.Context, unitScope string) (int, error)
	VectorScopes(ctx context.Context) ([]string, error)

	// Stats returns row counts.
	Stats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Close() error
}
