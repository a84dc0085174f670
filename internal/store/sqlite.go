package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// CurrentSchemaVersion is the current database schema version.
const CurrentSchemaVersion = 1

// SQLiteStore implements Store using modernc.org/sqlite.
// WAL mode with a single writer connection keeps concurrent readers safe.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation at compile time
var _ Store = (*SQLiteStore)(nil)

// validateIntegrity checks a SQLite database before opening.
// Returns nil if the file is valid or does not exist yet.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	return nil
}

// NewSQLiteStore opens (or creates) the store at path.
// If path is empty, an in-memory store is created for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateIntegrity(path); validErr != nil {
			slog.Warn("store_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			return nil, fmt.Errorf("store corrupted at %s: %w", path, validErr)
		}

		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer connection prevents lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates tables for documents, chunks, and vectors.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		unit_scope     TEXT NOT NULL,
		kind           TEXT NOT NULL DEFAULT '',
		version        INTEGER NOT NULL DEFAULT 1,
		effective_from TIMESTAMP,
		page_count     INTEGER NOT NULL DEFAULT 0,
		uploaded_at    TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_scope ON documents(unit_scope);

	CREATE TABLE IF NOT EXISTS chunks (
		id          TEXT PRIMARY KEY,
		doc_id      TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		page        INTEGER NOT NULL,
		chunk_index INTEGER NOT NULL,
		text        TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);

	CREATE TABLE IF NOT EXISTS vectors (
		chunk_id   TEXT PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
		unit_scope TEXT NOT NULL,
		dims       INTEGER NOT NULL,
		vec        BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vectors_scope ON vectors(unit_scope);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveDocument upserts a document row.
func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	var effective any
	if !doc.EffectiveFrom.IsZero() {
		effective = doc.EffectiveFrom
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, unit_scope, kind, version, effective_from, page_count, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			unit_scope = excluded.unit_scope,
			kind = excluded.kind,
			version = excluded.version,
			effective_from = excluded.effective_from,
			page_count = excluded.page_count`,
		doc.ID, doc.Name, doc.UnitScope, doc.Kind, doc.Version, effective, doc.PageCount, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument returns the document with the given id, or an error if absent.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, unit_scope, kind, version, effective_from, page_count, uploaded_at
		FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// ListDocuments returns documents, optionally filtered by unit scope,
// newest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context, unitScope string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, unit_scope, kind, version, effective_from, page_count, uploaded_at
		FROM documents
		WHERE (? = '' OR unit_scope = ?)
		ORDER BY uploaded_at DESC, id`, unitScope, unitScope)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// rowScanner abstracts sql.Row and sql.Rows for scanDocument.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var effective sql.NullTime
	err := row.Scan(&doc.ID, &doc.Name, &doc.UnitScope, &doc.Kind, &doc.Version,
		&effective, &doc.PageCount, &doc.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	if effective.Valid {
		doc.EffectiveFrom = effective.Time
	}
	return &doc, nil
}

// SaveChunks upserts the batch inside one transaction. Re-saving a chunk with
// the same id replaces it; it never duplicates.
func (s *SQLiteStore) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, doc_id, page, chunk_index, text)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc_id = excluded.doc_id,
			page = excluded.page,
			chunk_index = excluded.chunk_index,
			text = excluded.text`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocID, c.Page, c.Index, c.Text); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// GetChunks returns chunks by id in batch, joined with their document for
// file name and unit scope. Missing ids are silently skipped.
func (s *SQLiteStore) GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.doc_id, d.unit_scope, d.name, c.page, c.chunk_index, c.text
		FROM chunks c
		JOIN documents d ON d.id = c.doc_id
		WHERE c.id IN (%s)`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Chunk, len(ids))
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve the requested order.
	out := make([]*Chunk, 0, len(byID))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// ChunksByScope returns every chunk in the given scope, ordered by document,
// page, and index. Empty scope returns all chunks.
func (s *SQLiteStore) ChunksByScope(ctx context.Context, unitScope string) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.doc_id, d.unit_scope, d.name, c.page, c.chunk_index, c.text
		FROM chunks c
		JOIN documents d ON d.id = c.doc_id
		WHERE (? = '' OR d.unit_scope = ?)
		ORDER BY c.doc_id, c.page, c.chunk_index`, unitScope, unitScope)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks by scope: %w", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SearchCandidates returns chunks containing any token as a substring.
// instr() is used instead of LIKE so tokens containing % or _ match literally.
func (s *SQLiteStore) SearchCandidates(ctx context.Context, tokens []string, unitScope string, limit int) ([]*Chunk, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 200
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	ors := make([]string, len(tokens))
	args := []any{unitScope, unitScope}
	for i, tok := range tokens {
		ors[i] = "instr(lower(c.text), ?) > 0"
		args = append(args, strings.ToLower(tok))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT c.id, c.doc_id, d.unit_scope, d.name, c.page, c.chunk_index, c.text
		FROM chunks c
		JOIN documents d ON d.id = c.doc_id
		WHERE (? = '' OR d.unit_scope = ?)
		  AND (%s)
		LIMIT ?`, strings.Join(ors, " OR "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func scanChunk(row rowScanner) (*Chunk, error) {
	var c Chunk
	if err := row.Scan(&c.ID, &c.DocID, &c.UnitScope, &c.FileName, &c.Page, &c.Index, &c.Text); err != nil {
		return nil, fmt.Errorf("failed to scan chunk: %w", err)
	}
	return &c, nil
}

// SaveVectors upserts the batch inside one transaction so a partial write
// cannot leave orphaned vector rows.
func (s *SQLiteStore) SaveVectors(ctx context.Context, recs []*VectorRecord) error {
	if len(recs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (chunk_id, unit_scope, dims, vec)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			unit_scope = excluded.unit_scope,
			dims = excluded.dims,
			vec = excluded.vec`)
	if err != nil {
		return fmt.Errorf("failed to prepare vector upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if len(rec.Vector) != rec.Dims {
			return fmt.Errorf("vector for chunk %s has %d dims, record says %d",
				rec.ChunkID, len(rec.Vector), rec.Dims)
		}
		if _, err := stmt.ExecContext(ctx, rec.ChunkID, rec.UnitScope, rec.Dims, encodeVector(rec.Vector)); err != nil {
			return fmt.Errorf("failed to save vector for chunk %s: %w", rec.ChunkID, err)
		}
	}

	return tx.Commit()
}

// VectorsByScope returns all vector records for the scope.
// Empty scope returns every vector.
func (s *SQLiteStore) VectorsByScope(ctx context.Context, unitScope string) ([]*VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, unit_scope, dims, vec
		FROM vectors
		WHERE (? = '' OR unit_scope = ?)
		ORDER BY chunk_id`, unitScope, unitScope)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	var recs []*VectorRecord
	for rows.Next() {
		var rec VectorRecord
		var blob []byte
		if err := rows.Scan(&rec.ChunkID, &rec.UnitScope, &rec.Dims, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan vector: %w", err)
		}
		vec, err := decodeVector(blob, rec.Dims)
		if err != nil {
			return nil, fmt.Errorf("vector for chunk %s: %w", rec.ChunkID, err)
		}
		rec.Vector = vec
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// VectorCount returns the number of vectors in the scope.
func (s *SQLiteStore) VectorCount(ctx context.Context, unitScope string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM vectors WHERE (? = '' OR unit_scope = ?)`,
		unitScope, unitScope).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return count, nil
}

// VectorScopes returns the distinct unit scopes that have vectors.
func (s *SQLiteStore) VectorScopes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT unit_scope FROM vectors ORDER BY unit_scope`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scopes: %w", err)
	}
	defer rows.Close()

	var scopes []string
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, fmt.Errorf("failed to scan scope: %w", err)
		}
		scopes = append(scopes, scope)
	}
	return scopes, rows.Err()
}

// Stats returns row counts for documents, chunks, and vectors.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var st Stats
	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM documents", &st.Documents},
		{"SELECT COUNT(*) FROM chunks", &st.Chunks},
		{"SELECT COUNT(*) FROM vectors", &st.Vectors},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("failed to gather stats: %w", err)
		}
	}
	return &st, nil
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// encodeVector serializes a float32 slice as a little-endian blob.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector deserializes a little-endian blob into a float32 slice.
func decodeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != 4*dims {
		return nil, fmt.Errorf("blob is %d bytes, want %d for %d dims", len(blob), 4*dims, dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
