// Package vectorstore provides vector storage implementations.
package vectorstore

import (
	"fmt"

	"go.uber.org/zap"
)

// NewStore creates a new Store based on the provider name.
//
//   - "chromem" (default): embedded ChromemStore, no external dependencies
//   - "qdrant": QdrantStore, requires an external Qdrant server
//
// Both backends must share one Embedder so index-time and query-time
// vectors live in the same embedding space.
func NewStore(provider string, chromemCfg ChromemConfig, qdrantCfg QdrantConfig, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch provider {
	case "chromem", "":
		return NewChromemStore(chromemCfg, embedder, logger)
	case "qdrant":
		return NewQdrantStore(qdrantCfg, embedder, logger)
	default:
		return nil, fmt.Errorf("unsupported vectorstore provider: %s (supported: chromem, qdrant)", provider)
	}
}
