package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "evidence", cfg.Evidence.Dir)
	assert.Equal(t, 1000, cfg.Evidence.ChunkSize)
	assert.Equal(t, 200, cfg.Evidence.ChunkOverlap)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, "evidence", cfg.VectorStore.Chromem.Collection)
	assert.Equal(t, 1536, cfg.VectorStore.Chromem.VectorSize)
	assert.Equal(t, "localhost", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, 6334, cfg.VectorStore.Qdrant.Port)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embeddings.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.Embeddings.Model)
	assert.Equal(t, "disabled", cfg.LLM.Provider)
	assert.Equal(t, 70, cfg.Matcher.MinScore)
	assert.Equal(t, 3, cfg.Matcher.MaxMatches)
	assert.Equal(t, "mused", cfg.Observability.ServiceName)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http_port: 9000
evidence:
  dir: /data/evidence
  chunk_size: 500
  chunk_overlap: 50
vectorstore:
  provider: qdrant
  qdrant:
    host: qdrant.internal
    collection: evidence_prod
llm:
  provider: openai
  model: gpt-4o-mini
matcher:
  min_score: 80
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// The openai provider key comes from the environment.
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/data/evidence", cfg.Evidence.Dir)
	assert.Equal(t, 500, cfg.Evidence.ChunkSize)
	assert.Equal(t, 50, cfg.Evidence.ChunkOverlap)
	assert.Equal(t, "qdrant", cfg.VectorStore.Provider)
	assert.Equal(t, "qdrant.internal", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, "evidence_prod", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, 80, cfg.Matcher.MinScore)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9000\n"), 0o600))

	t.Setenv("SERVER_HTTP_PORT", "9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("valid defaults", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing evidence dir", func(t *testing.T) {
		cfg := base()
		cfg.Evidence.Dir = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		cfg := base()
		cfg.Evidence.ChunkOverlap = cfg.Evidence.ChunkSize
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown store provider", func(t *testing.T) {
		cfg := base()
		cfg.VectorStore.Provider = "pinecone"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown llm provider", func(t *testing.T) {
		cfg := base()
		cfg.LLM.Provider = "bard"
		assert.Error(t, cfg.Validate())
	})

	t.Run("min score out of range", func(t *testing.T) {
		cfg := base()
		cfg.Matcher.MinScore = 101
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown log format", func(t *testing.T) {
		cfg := base()
		cfg.Logging.Format = "xml"
		assert.Error(t, cfg.Validate())
	})
}

func TestStoreConfigConversion(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	chromem := cfg.ChromemStoreConfig()
	assert.Equal(t, "evidence", chromem.Collection)
	assert.Equal(t, 1536, chromem.VectorSize)

	qdrant := cfg.QdrantStoreConfig()
	assert.Equal(t, "localhost", qdrant.Host)
	assert.Equal(t, uint64(1536), qdrant.VectorSize)
}
