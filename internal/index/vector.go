package index

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"golang.org/x/sync/singleflight"

	"github.com/leasedesk/leasedesk/internal/embed"
	deskerrors "github.com/leasedesk/leasedesk/internal/errors"
	"github.com/leasedesk/leasedesk/internal/store"
)

const (
	// minSearchK widens narrow searches so the graph has room to rank
	// before results are cut back to the requested k.
	minSearchK = 8

	// backfillBackoff is how long a scope waits after a failed backfill
	// before the next search attempts it again.
	backfillBackoff = 30 * time.Second
)

// scopeGraph holds the in-memory HNSW graph for one unit scope plus the
// id mappings and raw vectors used for exact cosine scoring.
type scopeGraph struct {
	graph   *hnsw.Graph[uint64]
	idToKey map[string]uint64
	keyToID map[uint64]string
	vectors map[string][]float32
	nextKey uint64
}

func newScopeGraph() *scopeGraph {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return &scopeGraph{
		graph:   g,
		idToKey: make(map[string]uint64),
		keyToID: make(map[uint64]string),
		vectors: make(map[string][]float32),
	}
}

// add inserts or replaces one vector. Replacement uses lazy deletion: the
// old graph node is orphaned rather than removed.
func (sg *scopeGraph) add(id string, vec []float32) {
	if oldKey, exists := sg.idToKey[id]; exists {
		delete(sg.keyToID, oldKey)
		delete(sg.idToKey, id)
	}
	key := sg.nextKey
	sg.nextKey++

	sg.graph.Add(hnsw.MakeNode(key, vec))
	sg.idToKey[id] = key
	sg.keyToID[key] = id
	sg.vectors[id] = vec
}

// VectorIndex answers semantic queries over per-scope HNSW graphs. Graphs
// are built lazily on first search from vectors persisted in the store;
// scopes with chunks but no stored vectors are backfilled by embedding the
// chunk text on demand.
type VectorIndex struct {
	store    store.Store
	embedder embed.Embedder

	mu      sync.RWMutex
	scopes  map[string]*scopeGraph
	backoff map[string]time.Time
	closed  bool

	group singleflight.Group
}

func NewVectorIndex(s store.Store, e embed.Embedder) *VectorIndex {
	return &VectorIndex{
		store:    s,
		embedder: e,
		scopes:   make(map[string]*scopeGraph),
		backoff:  make(map[string]time.Time),
	}
}

// Add embeds the chunks and persists their vectors. Embedding failures are
// logged and swallowed so ingestion still succeeds with lexical-only search;
// storage failures are returned. Returns the number of vectors written.
func (v *VectorIndex) Add(ctx context.Context, chunks []*store.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vecs, err := v.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		slog.Warn("vector_add_embedding_failed",
			slog.Int("chunks", len(chunks)),
			slog.String("error", err.Error()))
		return 0, nil
	}
	if len(vecs) != len(chunks) {
		slog.Warn("vector_add_embedding_mismatch",
			slog.Int("chunks", len(chunks)),
			slog.Int("vectors", len(vecs)))
		return 0, nil
	}

	recs := make([]*store.VectorRecord, len(chunks))
	for i, c := range chunks {
		recs[i] = &store.VectorRecord{
			ChunkID:   c.ID,
			UnitScope: c.UnitScope,
			Dims:      len(vecs[i]),
			Vector:    vecs[i],
		}
	}
	if err := v.store.SaveVectors(ctx, recs); err != nil {
		return 0, deskerrors.StorageError("persist vectors", err)
	}

	// Keep any already-loaded graphs current.
	v.mu.Lock()
	for i, c := range chunks {
		if sg, ok := v.scopes[c.UnitScope]; ok {
			sg.add(c.ID, vecs[i])
		}
	}
	v.mu.Unlock()

	return len(recs), nil
}

// Search embeds the query and returns the k nearest chunks by cosine
// similarity. Empty unitScope searches every scope and merges results.
func (v *VectorIndex) Search(ctx context.Context, query, unitScope string, k int) ([]*store.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}

	v.mu.RLock()
	if v.closed {
		v.mu.RUnlock()
		return nil, fmt.Errorf("vector index is closed")
	}
	v.mu.RUnlock()

	scopes, err := v.targetScopes(ctx, unitScope)
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		return nil, nil
	}

	queryVec, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, deskerrors.EmbeddingError("embed query", err)
	}

	kk := k
	if kk < minSearchK {
		kk = minSearchK
	}

	type scored struct {
		chunkID string
		score   float64
	}
	var matches []scored

	for _, scope := range scopes {
		sg, err := v.ensureScope(ctx, scope)
		if err != nil {
			slog.Warn("vector_scope_unavailable",
				slog.String("unit_scope", scope),
				slog.String("error", err.Error()))
			continue
		}
		if sg == nil {
			continue
		}

		v.mu.RLock()
		if sg.graph.Len() == 0 {
			v.mu.RUnlock()
			continue
		}
		nodes := sg.graph.Search(queryVec, kk)
		for _, node := range nodes {
			id, ok := sg.keyToID[node.Key]
			if !ok {
				continue
			}
			matches = append(matches, scored{
				chunkID: id,
				score:   cosineSimilarity(queryVec, sg.vectors[id]),
			})
		}
		v.mu.RUnlock()
	}

	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.chunkID
	}
	chunks, err := v.store.GetChunks(ctx, ids)
	if err != nil {
		return nil, deskerrors.New(deskerrors.ErrCodeStorageRead, "load matched chunks", err)
	}
	byID := make(map[string]*store.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	hits := make([]*store.SearchHit, 0, len(matches))
	for _, m := range matches {
		c, ok := byID[m.chunkID]
		if !ok {
			continue
		}
		hits = append(hits, &store.SearchHit{
			File:  c.FileName,
			Page:  c.Page,
			Text:  c.Text,
			Score: m.score,
		})
	}

	store.SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// targetScopes resolves which scope graphs a search touches.
func (v *VectorIndex) targetScopes(ctx context.Context, unitScope string) ([]string, error) {
	if unitScope != "" {
		return []string{unitScope}, nil
	}
	scopes, err := v.store.VectorScopes(ctx)
	if err != nil {
		return nil, deskerrors.New(deskerrors.ErrCodeStorageRead, "list vector scopes", err)
	}
	return scopes, nil
}

// ensureScope returns the loaded graph for a scope, building it on first
// use. Concurrent searches for the same scope share one build. A scope whose
// backfill failed recently is skipped until its backoff expires.
func (v *VectorIndex) ensureScope(ctx context.Context, scope string) (*scopeGraph, error) {
	v.mu.RLock()
	sg, loaded := v.scopes[scope]
	until, cooling := v.backoff[scope]
	v.mu.RUnlock()

	if loaded {
		return sg, nil
	}
	if cooling && time.Now().Before(until) {
		return nil, nil
	}

	result, err, _ := v.group.Do(scope, func() (interface{}, error) {
		v.mu.RLock()
		existing, ok := v.scopes[scope]
		v.mu.RUnlock()
		if ok {
			return existing, nil
		}

		built, err := v.buildScope(ctx, scope)
		if err != nil {
			v.mu.Lock()
			v.backoff[scope] = time.Now().Add(backfillBackoff)
			v.mu.Unlock()
			return nil, err
		}

		v.mu.Lock()
		v.scopes[scope] = built
		delete(v.backoff, scope)
		v.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*scopeGraph), nil
}

// buildScope loads persisted vectors for a scope, embedding chunk text for
// any chunks that have no stored vector yet.
func (v *VectorIndex) buildScope(ctx context.Context, scope string) (*scopeGraph, error) {
	recs, err := v.store.VectorsByScope(ctx, scope)
	if err != nil {
		return nil, deskerrors.New(deskerrors.ErrCodeStorageRead, "load scope vectors", err)
	}

	sg := newScopeGraph()
	have := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		sg.add(rec.ChunkID, rec.Vector)
		have[rec.ChunkID] = struct{}{}
	}

	chunks, err := v.store.ChunksByScope(ctx, scope)
	if err != nil {
		return nil, deskerrors.New(deskerrors.ErrCodeStorageRead, "load scope chunks", err)
	}

	var missing []*store.Chunk
	for _, c := range chunks {
		if _, ok := have[c.ID]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		slog.Debug("vector_scope_loaded",
			slog.String("unit_scope", scope),
			slog.Int("vectors", len(recs)))
		return sg, nil
	}

	slog.Info("vector_scope_backfill",
		slog.String("unit_scope", scope),
		slog.Int("missing", len(missing)))

	texts := make([]string, len(missing))
	for i, c := range missing {
		texts[i] = c.Text
	}
	vecs, err := v.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, deskerrors.EmbeddingError("backfill scope vectors", err)
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("backfill embedding count mismatch: got %d, want %d", len(vecs), len(missing))
	}

	newRecs := make([]*store.VectorRecord, len(missing))
	for i, c := range missing {
		newRecs[i] = &store.VectorRecord{
			ChunkID:   c.ID,
			UnitScope: c.UnitScope,
			Dims:      len(vecs[i]),
			Vector:    vecs[i],
		}
		sg.add(c.ID, vecs[i])
	}
	if err := v.store.SaveVectors(ctx, newRecs); err != nil {
		return nil, deskerrors.StorageError("persist backfilled vectors", err)
	}
	return sg, nil
}

// Close drops the in-memory graphs. The store and embedder are owned by the
// caller and are not closed here.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	v.scopes = nil
	v.backoff = nil
	return nil
}

// cosineSimilarity computes dot(a,b) / (|a||b| + eps). The epsilon guards
// against zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + 1e-9)
}
