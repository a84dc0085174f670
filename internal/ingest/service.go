// Package ingest coordinates document intake: chunking, persistence, and
// best-effort vector indexing.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leasedesk/leasedesk/internal/chunk"
	deskerrors "github.com/leasedesk/leasedesk/internal/errors"
	"github.com/leasedesk/leasedesk/internal/store"
)

// VectorAdder is the slice of the vector index ingestion needs.
type VectorAdder interface {
	Add(ctx context.Context, chunks []*store.Chunk) (int, error)
}

// Request describes one document to ingest.
type Request struct {
	FileName  string
	UnitScope string
	Kind      string
	Raw       []byte
}

// Result reports what ingestion produced.
type Result struct {
	DocID    string
	Chunks   int
	Vectors  int
	Pages    int
	Duration time.Duration
}

// Service ingests documents. Chunk and document writes must succeed;
// vector indexing is best effort and search degrades to lexical when the
// embedding service is down.
type Service struct {
	store   store.Store
	chunker *chunk.Chunker
	vectors VectorAdder
	logger  *slog.Logger
}

func NewService(s store.Store, c *chunk.Chunker, v VectorAdder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, chunker: c, vectors: v, logger: logger}
}

// Ingest chunks the document, persists it, and indexes vectors.
func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	if len(req.Raw) == 0 {
		return nil, deskerrors.ValidationError("document is empty", nil)
	}
	if req.FileName == "" {
		return nil, deskerrors.ValidationError("file name is required", nil)
	}

	start := time.Now()
	docID := uuid.NewString()

	chunks := s.chunker.Chunk(ctx, docID, req.FileName, req.UnitScope, req.Raw)

	pages := 0
	for _, c := range chunks {
		if c.Page > pages {
			pages = c.Page
		}
	}

	doc := &store.Document{
		ID:         docID,
		Name:       req.FileName,
		UnitScope:  req.UnitScope,
		Kind:       req.Kind,
		Version:    1,
		PageCount:  pages,
		UploadedAt: time.Now(),
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, deskerrors.StorageError("save document", err)
	}
	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		return nil, deskerrors.StorageError("save chunks", err)
	}

	vectors := 0
	if s.vectors != nil && len(chunks) > 0 {
		n, err := s.vectors.Add(ctx, chunks)
		if err != nil {
			// Chunks are already durable; vectors backfill on first search.
			s.logger.Warn("ingest_vector_indexing_failed",
				slog.String("doc_id", docID),
				slog.String("error", err.Error()))
		}
		vectors = n
	}

	result := &Result{
		DocID:    docID,
		Chunks:   len(chunks),
		Vectors:  vectors,
		Pages:    pages,
		Duration: time.Since(start),
	}
	s.logger.Info("ingest_done",
		slog.String("doc_id", docID),
		slog.String("file", req.FileName),
		slog.String("unit_scope", req.UnitScope),
		slog.Int("pages", result.Pages),
		slog.Int("chunks", result.Chunks),
		slog.Int("vectors", result.Vectors),
		slog.Duration("duration", result.Duration))
	return result, nil
}
