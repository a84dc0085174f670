package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leasedesk/leasedesk/internal/chunk"
	"github.com/leasedesk/leasedesk/internal/store"
)

type textExtractor struct{}

func (textExtractor) Extract(ctx context.Context, raw []byte) ([]chunk.Page, error) {
	return []chunk.Page{{Number: 1, Text: string(raw)}}, nil
}

func (textExtractor) Name() string { return "text" }

type recordingAdder struct {
	chunks []*store.Chunk
	err    error
}

func (r *recordingAdder) Add(ctx context.Context, chunks []*store.Chunk) (int, error) {
	r.chunks = chunks
	if r.err != nil {
		return 0, r.err
	}
	return len(chunks), nil
}

func newTestService(t *testing.T, adder *recordingAdder) (*Service, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	chunker := chunk.New(textExtractor{}, nil, chunk.Options{})
	return NewService(s, chunker, adder, nil), s
}

func TestIngest(t *testing.T) {
	adder := &recordingAdder{}
	svc, s := newTestService(t, adder)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, Request{
		FileName:  "lease.pdf",
		UnitScope: "A-101",
		Kind:      "lease",
		Raw:       []byte("Rent is due on the 1st of each month for unit A-101. This lease covers parking and utilities."),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.DocID)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 1, res.Vectors)
	assert.Len(t, adder.chunks, 1)

	doc, err := s.GetDocument(ctx, res.DocID)
	require.NoError(t, err)
	assert.Equal(t, "lease.pdf", doc.Name)
	assert.Equal(t, "A-101", doc.UnitScope)
	assert.Equal(t, 1, doc.Version)

	chunks, err := s.ChunksByScope(ctx, "A-101")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, store.ChunkID(res.DocID, 1, 0), chunks[0].ID)
}

func TestIngestVectorFailureIsNotFatal(t *testing.T) {
	adder := &recordingAdder{err: errors.New("embedding down")}
	svc, s := newTestService(t, adder)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, Request{
		FileName:  "lease.pdf",
		UnitScope: "A-101",
		Raw:       []byte("Tenant shall keep the premises clean and sanitary at all times."),
	})
	require.NoError(t, err)
	assert.Zero(t, res.Vectors)
	assert.Equal(t, 1, res.Chunks)

	// Chunks landed despite the vector failure.
	chunks, err := s.ChunksByScope(ctx, "A-101")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestIngestValidation(t *testing.T) {
	svc, _ := newTestService(t, &recordingAdder{})
	ctx := context.Background()

	_, err := svc.Ingest(ctx, Request{FileName: "a.pdf"})
	require.Error(t, err)

	_, err = svc.Ingest(ctx, Request{Raw: []byte("content")})
	require.Error(t, err)
}

func TestIngestNilVectorAdder(t *testing.T) {
	s, err := store.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	chunker := chunk.New(textExtractor{}, nil, chunk.Options{})
	svc := NewService(s, chunker, nil, nil)

	res, err := svc.Ingest(context.Background(), Request{
		FileName: "a.pdf",
		Raw:      []byte("Some document text that has enough characters to pass extraction checks."),
	})
	require.NoError(t, err)
	assert.Zero(t, res.Vectors)
}
