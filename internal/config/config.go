// Package config provides configuration loading for vergiai.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/webdedesign/vergiai/internal/chunk"
	"github.com/webdedesign/vergiai/internal/storage"
)

// Config is the full application configuration.
type Config struct {
	Store     StoreConfig     `koanf:"store"`
	Chunking  ChunkingConfig  `koanf:"chunking"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Answer    AnswerConfig    `koanf:"answer"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Log       LogConfig       `koanf:"log"`
	Server    ServerConfig    `koanf:"server"`
}

// StoreConfig selects the backend holding the entries.
type StoreConfig struct {
	Backend string       `koanf:"backend"` // sqlite or qdrant
	Table   string       `koanf:"table"`
	SQLite  SQLiteConfig `koanf:"sqlite"`
	Qdrant  QdrantConfig `koanf:"qdrant"`
}

// SQLiteConfig configures the local lexical store.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// QdrantConfig configures the remote vector store.
type QdrantConfig struct {
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port"` // gRPC, not REST
	APIKey        string        `koanf:"api_key"`
	UseTLS        bool          `koanf:"use_tls"`
	Dimension     int           `koanf:"dimension"`
	BatchSize     int           `koanf:"batch_size"`
	BatchInterval time.Duration `koanf:"batch_interval"`
}

// ChunkingConfig selects the splitting policy.
type ChunkingConfig struct {
	Policy     string `koanf:"policy"` // words or chars
	Window     int    `koanf:"window"`
	Overlap    int    `koanf:"overlap"`
	CharBudget int    `koanf:"char_budget"`
}

// RetrievalConfig tunes passage selection.
type RetrievalConfig struct {
	TopN int `koanf:"top_n"`
	// MinScore overrides the backend floor when set.
	MinScore *float64 `koanf:"min_score"`
}

// EmbeddingConfig configures the embeddings API.
type EmbeddingConfig struct {
	APIKey    string `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	Model     string `koanf:"model"`
	BatchSize int    `koanf:"batch_size"`
}

// AnswerConfig configures the chat model.
type AnswerConfig struct {
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	Model          string `koanf:"model"`
	MaxTokens      int    `koanf:"max_tokens"`
	MaxExchanges   int    `koanf:"max_exchanges"`
	GroundedPrompt string `koanf:"grounded_prompt"`
	FallbackPrompt string `koanf:"fallback_prompt"`
}

// IngestConfig configures document discovery.
type IngestConfig struct {
	Dir        string   `koanf:"dir"`
	Extensions []string `koanf:"extensions"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: storage.BackendSQLite,
			Table:   storage.DefaultTable,
			SQLite:  SQLiteConfig{Path: "./veritabani/vergi.db"},
			Qdrant: QdrantConfig{
				Host:      "localhost",
				Port:      6334,
				Dimension: storage.DefaultDimension,
				BatchSize: storage.DefaultBatchSize,
			},
		},
		Chunking: ChunkingConfig{
			Policy:     chunk.PolicyWords,
			Window:     chunk.DefaultWindow,
			Overlap:    chunk.DefaultOverlap,
			CharBudget: chunk.DefaultCharBudget,
		},
		Retrieval: RetrievalConfig{TopN: 5},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			BatchSize: 100,
		},
		Answer: AnswerConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 2048,
		},
		Ingest: IngestConfig{
			Dir:        "./belgeler",
			Extensions: []string{".pdf"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Validate checks the configuration before any work starts.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case storage.BackendSQLite:
		if c.Store.SQLite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path is required"))
		}
	case storage.BackendQdrant:
		if c.Store.Qdrant.Host == "" {
			errs = append(errs, errors.New("store.qdrant.host is required"))
		}
		if c.Store.Qdrant.Port <= 0 || c.Store.Qdrant.Port > 65535 {
			errs = append(errs, fmt.Errorf("invalid store.qdrant.port: %d (must be 1-65535)", c.Store.Qdrant.Port))
		}
		if c.Store.Qdrant.Dimension <= 0 {
			errs = append(errs, fmt.Errorf("invalid store.qdrant.dimension: %d", c.Store.Qdrant.Dimension))
		}
		if c.Store.Qdrant.BatchSize <= 0 || c.Store.Qdrant.BatchSize > storage.MaxBatchSize {
			errs = append(errs, fmt.Errorf("invalid store.qdrant.batch_size: %d (must be 1-%d)",
				c.Store.Qdrant.BatchSize, storage.MaxBatchSize))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, c.Store.Backend))
	}

	if err := storage.ValidateTable(c.Store.Table); err != nil {
		errs = append(errs, fmt.Errorf("store.table: %w", err))
	}

	switch c.Chunking.Policy {
	case chunk.PolicyWords:
		if c.Chunking.Window <= c.Chunking.Overlap || c.Chunking.Overlap < 0 {
			errs = append(errs, fmt.Errorf("%w: chunking.window=%d chunking.overlap=%d",
				chunk.ErrInvalidWindow, c.Chunking.Window, c.Chunking.Overlap))
		}
	case chunk.PolicyChars:
		if c.Chunking.CharBudget <= 0 {
			errs = append(errs, fmt.Errorf("invalid chunking.char_budget: %d", c.Chunking.CharBudget))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown chunking.policy %q (words or chars)", c.Chunking.Policy))
	}

	if c.Retrieval.TopN <= 0 {
		errs = append(errs, fmt.Errorf("invalid retrieval.top_n: %d", c.Retrieval.TopN))
	}
	if len(c.Ingest.Extensions) == 0 {
		errs = append(errs, errors.New("ingest.extensions must not be empty"))
	}

	return errors.Join(errs...)
}

// RequireEmbedding checks the settings the vector backend needs.
func (c *Config) RequireEmbedding() error {
	if c.Embedding.APIKey == "" {
		return errors.New("embedding.api_key is required for the qdrant backend (or set OPENAI_API_KEY)")
	}
	return nil
}

// RequireAnswer checks the settings the chat model needs.
func (c *Config) RequireAnswer() error {
	if c.Answer.APIKey == "" {
		return errors.New("answer.api_key is required (or set OPENAI_API_KEY)")
	}
	return nil
}

// ChunkerOptions translates the chunking section into chunker options.
func (c *Config) ChunkerOptions() []chunk.Option {
	if c.Chunking.Policy == chunk.PolicyChars {
		return []chunk.Option{chunk.WithCharBudget(c.Chunking.CharBudget)}
	}
	return []chunk.Option{chunk.WithWindow(c.Chunking.Window, c.Chunking.Overlap)}
}

// StoreOptions translates the store section into backend options.
func (c *Config) StoreOptions() storage.Options {
	return storage.Options{
		Backend:    c.Store.Backend,
		Table:      c.Store.Table,
		SQLitePath: c.Store.SQLite.Path,
		Qdrant: storage.QdrantConfig{
			Host:          c.Store.Qdrant.Host,
			Port:          c.Store.Qdrant.Port,
			APIKey:        c.Store.Qdrant.APIKey,
			UseTLS:        c.Store.Qdrant.UseTLS,
			Dimension:     c.Store.Qdrant.Dimension,
			BatchSize:     c.Store.Qdrant.BatchSize,
			BatchInterval: c.Store.Qdrant.BatchInterval,
		},
	}
}
