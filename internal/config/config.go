// Package config loads leasedesk configuration from YAML with LEASEDESK_*
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leasedesk/leasedesk/internal/chunk"
	deskerrors "github.com/leasedesk/leasedesk/internal/errors"
)

// Config is the complete leasedesk configuration.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Generation GenerationConfig `yaml:"generation"`
	Search     SearchConfig     `yaml:"search"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	// Path is the database file. Empty uses ~/.leasedesk/leasedesk.db.
	Path string `yaml:"path"`
}

// ChunkingConfig tunes document windowing.
type ChunkingConfig struct {
	WindowChars  int `yaml:"window_chars"`
	OverlapChars int `yaml:"overlap_chars"`
	MaxPageChars int `yaml:"max_page_chars"`
	MaxDocChars  int `yaml:"max_doc_chars"`
}

// EmbeddingsConfig configures the embedding provider. Any OpenAI-compatible
// /v1/embeddings endpoint works, including local servers.
type EmbeddingsConfig struct {
	BaseURL    string   `yaml:"base_url"`
	APIKey     string   `yaml:"api_key"`
	Model      string   `yaml:"model"`
	Dimensions int      `yaml:"dimensions"`
	BatchSize  int      `yaml:"batch_size"`
	Timeout    Duration `yaml:"timeout"`
	CacheSize  int      `yaml:"cache_size"`
}

// GenerationConfig configures the chat completion provider. Disabled when
// BaseURL is empty; answers then degrade to citations alone.
type GenerationConfig struct {
	BaseURL string   `yaml:"base_url"`
	APIKey  string   `yaml:"api_key"`
	Model   string   `yaml:"model"`
	Timeout Duration `yaml:"timeout"`
}

// SearchConfig tunes retrieval.
type SearchConfig struct {
	DefaultK      int `yaml:"default_k"`
	ContextBudget int `yaml:"context_budget"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns a configuration that works out of the box against a local
// Ollama instance.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{},
		Chunking: ChunkingConfig{
			WindowChars:  chunk.DefaultWindowChars,
			OverlapChars: chunk.DefaultOverlapChars,
			MaxPageChars: chunk.DefaultMaxPageChars,
			MaxDocChars:  chunk.DefaultMaxDocChars,
		},
		Embeddings: EmbeddingsConfig{
			BaseURL:   "http://localhost:11434",
			Model:     "nomic-embed-text",
			BatchSize: 32,
			Timeout:   Duration(30 * time.Second),
			CacheSize: 1000,
		},
		Generation: GenerationConfig{
			Model:   "gpt-4o-mini",
			Timeout: Duration(60 * time.Second),
		},
		Search: SearchConfig{
			DefaultK:      5,
			ContextBudget: 6000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDataDir returns ~/.leasedesk, falling back to the current
// directory when the home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".leasedesk"
	}
	return filepath.Join(home, ".leasedesk")
}

// DatabasePath resolves the effective database file path.
func (c *Config) DatabasePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(DefaultDataDir(), "leasedesk.db")
}

// Load reads configuration from the given file, merging over defaults.
// A missing path (or empty path) yields defaults. Environment overrides
// apply last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, deskerrors.New(deskerrors.ErrCodeConfigNotFound,
					fmt.Sprintf("config file not found: %s", path), err)
			}
			return nil, deskerrors.New(deskerrors.ErrCodeConfigInvalid, "read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, deskerrors.New(deskerrors.ErrCodeConfigInvalid, "parse config file", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies LEASEDESK_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LEASEDESK_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("LEASEDESK_EMBEDDINGS_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v := os.Getenv("LEASEDESK_EMBEDDINGS_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}
	if v := os.Getenv("LEASEDESK_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("LEASEDESK_GENERATION_URL"); v != "" {
		c.Generation.BaseURL = v
	}
	if v := os.Getenv("LEASEDESK_GENERATION_API_KEY"); v != "" {
		c.Generation.APIKey = v
	}
	if v := os.Getenv("LEASEDESK_GENERATION_MODEL"); v != "" {
		c.Generation.Model = v
	}
	if v := os.Getenv("LEASEDESK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LEASEDESK_DEFAULT_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.DefaultK = k
		}
	}
}

// Validate rejects configurations that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.Chunking.WindowChars <= 0 {
		return deskerrors.New(deskerrors.ErrCodeConfigInvalid, "chunking.window_chars must be positive", nil)
	}
	if c.Chunking.OverlapChars < 0 {
		return deskerrors.New(deskerrors.ErrCodeConfigInvalid, "chunking.overlap_chars must not be negative", nil)
	}
	if c.Chunking.OverlapChars >= c.Chunking.WindowChars {
		return deskerrors.New(deskerrors.ErrCodeConfigInvalid,
			"chunking.overlap_chars must be smaller than chunking.window_chars", nil)
	}
	if c.Search.DefaultK <= 0 {
		return deskerrors.New(deskerrors.ErrCodeConfigInvalid, "search.default_k must be positive", nil)
	}
	if c.Search.ContextBudget <= 0 {
		return deskerrors.New(deskerrors.ErrCodeConfigInvalid, "search.context_budget must be positive", nil)
	}
	return nil
}
