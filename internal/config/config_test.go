package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webdedesign/vergiai/internal/chunk"
	"github.com/webdedesign/vergiai/internal/storage"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "QDRANT_API_KEY", "QDRANT_HOST", "QDRANT_PORT"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vergiai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, storage.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "vergi_belgeleri", cfg.Store.Table)
	assert.Equal(t, 400, cfg.Chunking.Window)
	assert.Equal(t, 40, cfg.Chunking.Overlap)
	assert.Equal(t, 5, cfg.Retrieval.TopN)
	assert.Equal(t, 384, cfg.Store.Qdrant.Dimension)
	assert.Equal(t, []string{".pdf"}, cfg.Ingest.Extensions)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
store:
  backend: qdrant
  table: belgeler
  qdrant:
    host: qdrant.internal
    batch_size: 32
    batch_interval: 250ms
chunking:
  window: 300
  overlap: 30
retrieval:
  top_n: 3
  min_score: 0.25
`)
	t.Setenv("VERGIAI_STORE__QDRANT__PORT", "6400")
	t.Setenv("VERGIAI_LOG__LEVEL", "debug")
	t.Setenv("VERGIAI_INGEST__EXTENSIONS", ".pdf,.PDF")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, storage.BackendQdrant, cfg.Store.Backend)
	assert.Equal(t, "belgeler", cfg.Store.Table)
	assert.Equal(t, "qdrant.internal", cfg.Store.Qdrant.Host)
	assert.Equal(t, 6400, cfg.Store.Qdrant.Port)
	assert.Equal(t, 32, cfg.Store.Qdrant.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Store.Qdrant.BatchInterval)
	assert.Equal(t, 384, cfg.Store.Qdrant.Dimension, "untouched defaults survive")
	assert.Equal(t, 300, cfg.Chunking.Window)
	assert.Equal(t, 3, cfg.Retrieval.TopN)
	require.NotNil(t, cfg.Retrieval.MinScore)
	assert.InDelta(t, 0.25, *cfg.Retrieval.MinScore, 1e-9)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{".pdf", ".PDF"}, cfg.Ingest.Extensions)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "sk-test", cfg.Answer.APIKey)

	opts := cfg.StoreOptions()
	assert.Equal(t, "belgeler", opts.Table)
	assert.Equal(t, 6400, opts.Qdrant.Port)
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Store, cfg.Store)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "yok.yaml"))
	assert.Error(t, err)
}

func TestLoad_LegacyQdrantEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("QDRANT_HOST", "10.0.0.5")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("QDRANT_API_KEY", "qk")

	cfg, err := Load(writeConfig(t, "log:\n  format: json\n"))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", cfg.Store.Qdrant.Host)
	assert.Equal(t, 7000, cfg.Store.Qdrant.Port)
	assert.Equal(t, "qk", cfg.Store.Qdrant.APIKey)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		target error
	}{
		{"window not above overlap", func(c *Config) { c.Chunking.Window = 40 }, chunk.ErrInvalidWindow},
		{"unknown backend", func(c *Config) { c.Store.Backend = "lancedb" }, storage.ErrUnknownBackend},
		{"bad table", func(c *Config) { c.Store.Table = "x; drop" }, storage.ErrInvalidTable},
		{"batch too large", func(c *Config) {
			c.Store.Backend = storage.BackendQdrant
			c.Store.Qdrant.BatchSize = 500
		}, nil},
		{"zero top n", func(c *Config) { c.Retrieval.TopN = 0 }, nil},
		{"unknown policy", func(c *Config) { c.Chunking.Policy = "sentences" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestRequireKeys(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.RequireEmbedding())
	assert.Error(t, cfg.RequireAnswer())

	cfg.Embedding.APIKey = "k"
	cfg.Answer.APIKey = "k"
	assert.NoError(t, cfg.RequireEmbedding())
	assert.NoError(t, cfg.RequireAnswer())
}

func TestChunkerOptions(t *testing.T) {
	cfg := Default()
	c, err := chunk.NewChunker(cfg.ChunkerOptions()...)
	require.NoError(t, err)
	assert.Equal(t, "words(window=400, overlap=40)", c.String())

	cfg.Chunking.Policy = chunk.PolicyChars
	c, err = chunk.NewChunker(cfg.ChunkerOptions()...)
	require.NoError(t, err)
	assert.Equal(t, "chars(budget=500)", c.String())
}

func TestEnvValue_SplitsListSettings(t *testing.T) {
	key, value := envValue("VERGIAI_INGEST__EXTENSIONS", ".pdf, .PDF,,")
	assert.Equal(t, "ingest.extensions", key)
	assert.Equal(t, []string{".pdf", ".PDF"}, value)

	key, value = envValue("VERGIAI_ANSWER__GROUNDED_PROMPT", "a, b")
	assert.Equal(t, "answer.grounded_prompt", key)
	assert.Equal(t, "a, b", value)
}
