// Package config provides configuration loading for mused.
package config

import (
	"fmt"
	"time"

	"github.com/beaconlabs-io/muse-evidence/internal/llm"
	"github.com/beaconlabs-io/muse-evidence/internal/vectorstore"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// EvidenceConfig holds corpus location and chunking settings.
type EvidenceConfig struct {
	// Dir is the directory of evidence documents (.md / .txt with YAML
	// front matter).
	Dir string `koanf:"dir"`

	ChunkSize    int `koanf:"chunk_size"`
	ChunkOverlap int `koanf:"chunk_overlap"`

	// Watch re-indexes automatically when files under Dir change.
	Watch         bool          `koanf:"watch"`
	WatchDebounce time.Duration `koanf:"watch_debounce"`
}

// ChromemConfig holds settings for the embedded chromem backend.
type ChromemConfig struct {
	Path       string `koanf:"path"`
	Collection string `koanf:"collection"`
	VectorSize int    `koanf:"vector_size"`
	Compress   bool   `koanf:"compress"`
}

// QdrantConfig holds settings for the Qdrant gRPC backend.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Collection string `koanf:"collection"`
	VectorSize uint64 `koanf:"vector_size"`
	UseTLS     bool   `koanf:"use_tls"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	// Provider is "chromem" (default, embedded) or "qdrant".
	Provider string        `koanf:"provider"`
	Chromem  ChromemConfig `koanf:"chromem"`
	Qdrant   QdrantConfig  `koanf:"qdrant"`
}

// EmbeddingsConfig holds embedding API settings. The API key is taken
// from OPENAI_API_KEY, never from the config file.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

// MatcherConfig holds evidence matching thresholds.
type MatcherConfig struct {
	MinScore   int `koanf:"min_score"`
	MaxMatches int `koanf:"max_matches"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	OTLPEndpoint    string `koanf:"otlp_endpoint"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// Config is the root configuration for mused.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Evidence      EvidenceConfig      `koanf:"evidence"`
	VectorStore   VectorStoreConfig   `koanf:"vectorstore"`
	Embeddings    EmbeddingsConfig    `koanf:"embeddings"`
	LLM           llm.Config          `koanf:"llm"`
	Matcher       MatcherConfig       `koanf:"matcher"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Evidence.Dir == "" {
		return fmt.Errorf("evidence dir is required")
	}
	if c.Evidence.ChunkOverlap >= c.Evidence.ChunkSize {
		return fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)",
			c.Evidence.ChunkOverlap, c.Evidence.ChunkSize)
	}
	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unknown vectorstore provider: %q", c.VectorStore.Provider)
	}
	switch c.LLM.Provider {
	case "anthropic", "openai", "disabled":
	default:
		return fmt.Errorf("unknown llm provider: %q", c.LLM.Provider)
	}
	if c.Matcher.MinScore < 0 || c.Matcher.MinScore > 100 {
		return fmt.Errorf("matcher min_score must be 0-100, got %d", c.Matcher.MinScore)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format: %q", c.Logging.Format)
	}
	return nil
}

// ChromemStoreConfig converts to the vectorstore package's config type.
func (c *Config) ChromemStoreConfig() vectorstore.ChromemConfig {
	return vectorstore.ChromemConfig{
		Path:       c.VectorStore.Chromem.Path,
		Collection: c.VectorStore.Chromem.Collection,
		VectorSize: c.VectorStore.Chromem.VectorSize,
		Compress:   c.VectorStore.Chromem.Compress,
	}
}

// QdrantStoreConfig converts to the vectorstore package's config type.
func (c *Config) QdrantStoreConfig() vectorstore.QdrantConfig {
	return vectorstore.QdrantConfig{
		Host:       c.VectorStore.Qdrant.Host,
		Port:       c.VectorStore.Qdrant.Port,
		Collection: c.VectorStore.Qdrant.Collection,
		VectorSize: c.VectorStore.Qdrant.VectorSize,
		UseTLS:     c.VectorStore.Qdrant.UseTLS,
	}
}
