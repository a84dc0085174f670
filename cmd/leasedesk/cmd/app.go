package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leasedesk/leasedesk/internal/answer"
	"github.com/leasedesk/leasedesk/internal/chunk"
	"github.com/leasedesk/leasedesk/internal/config"
	"github.com/leasedesk/leasedesk/internal/embed"
	"github.com/leasedesk/leasedesk/internal/index"
	"github.com/leasedesk/leasedesk/internal/ingest"
	"github.com/leasedesk/leasedesk/internal/search"
	"github.com/leasedesk/leasedesk/internal/store"
)

// app is the composition root: it owns every client and index and wires
// them together for one command invocation.
type app struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	embedder embed.Embedder
	vector   *index.VectorIndex
	lexical  *index.LexicalIndex
	engine   *search.Engine
	answerer *answer.Answerer
	ingester *ingest.Service
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	dbPath := cfg.DatabasePath()
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	embedder := embed.NewCachedEmbedder(embed.NewOpenAIEmbedder(embed.OpenAIConfig{
		BaseURL:    cfg.Embeddings.BaseURL,
		APIKey:     cfg.Embeddings.APIKey,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		Timeout:    cfg.Embeddings.Timeout.Std(),
	}), cfg.Embeddings.CacheSize)

	vector := index.NewVectorIndex(st, embedder)
	lexical := index.NewLexicalIndex(st)
	engine := search.NewEngine(vector, lexical, nil)

	var completion answer.CompletionClient
	if cfg.Generation.BaseURL != "" {
		client := answer.NewOpenAIClient(cfg.Generation.BaseURL, cfg.Generation.APIKey, cfg.Generation.Model)
		client.Timeout = cfg.Generation.Timeout.Std()
		completion = client
	}
	answerer := answer.NewAnswerer(completion, cfg.Search.ContextBudget, nil)

	chunker := chunk.New(chunk.NewPDFExtractor(), chunk.NewPdftotextExtractor(), chunk.Options{
		WindowChars:  cfg.Chunking.WindowChars,
		OverlapChars: cfg.Chunking.OverlapChars,
		MaxPageChars: cfg.Chunking.MaxPageChars,
		MaxDocChars:  cfg.Chunking.MaxDocChars,
	})
	ingester := ingest.NewService(st, chunker, vector, nil)

	return &app{
		cfg:      cfg,
		store:    st,
		embedder: embedder,
		vector:   vector,
		lexical:  lexical,
		engine:   engine,
		answerer: answerer,
		ingester: ingester,
	}, nil
}

// textIngester returns an ingestion service that reads plain text instead
// of PDF.
func (a *app) textIngester() *ingest.Service {
	chunker := chunk.New(chunk.PlainTextExtractor{}, nil, chunk.Options{
		WindowChars:  a.cfg.Chunking.WindowChars,
		OverlapChars: a.cfg.Chunking.OverlapChars,
		MaxPageChars: a.cfg.Chunking.MaxPageChars,
		MaxDocChars:  a.cfg.Chunking.MaxDocChars,
	})
	return ingest.NewService(a.store, chunker, a.vector, nil)
}

// ingesterFor picks the chunking pipeline by file extension.
func (a *app) ingesterFor(fileName string) *ingest.Service {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".md":
		return a.textIngester()
	default:
		return a.ingester
	}
}

func (a *app) Close() {
	_ = a.vector.Close()
	_ = a.embedder.Close()
	_ = a.store.Close()
}
