package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/beaconlabs-io/muse-evidence/internal/chunker"
	"github.com/beaconlabs-io/muse-evidence/internal/config"
	"github.com/beaconlabs-io/muse-evidence/internal/embeddings"
	"github.com/beaconlabs-io/muse-evidence/internal/evidence"
	"github.com/beaconlabs-io/muse-evidence/internal/indexer"
	"github.com/beaconlabs-io/muse-evidence/internal/llm"
	"github.com/beaconlabs-io/muse-evidence/internal/logging"
	"github.com/beaconlabs-io/muse-evidence/internal/matcher"
	"github.com/beaconlabs-io/muse-evidence/internal/retriever"
	"github.com/beaconlabs-io/muse-evidence/internal/vectorstore"
)

// app bundles the wired services shared by the subcommands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     vectorstore.Store
	indexer   *indexer.Service
	retriever *retriever.Service
	matcher   *matcher.Service
}

// newApp loads configuration and wires the full service graph.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	embedSvc, err := embeddings.NewService(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  os.Getenv("OPENAI_API_KEY"),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}

	store, err := vectorstore.NewStore(
		cfg.VectorStore.Provider,
		cfg.ChromemStoreConfig(),
		cfg.QdrantStoreConfig(),
		embedSvc,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	loader, err := evidence.NewLoader(cfg.Evidence.Dir, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating evidence loader: %w", err)
	}

	splitter, err := chunker.New(chunker.Config{
		ChunkSize: cfg.Evidence.ChunkSize,
		Overlap:   cfg.Evidence.ChunkOverlap,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	completer, err := llm.New(cfg.LLM)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	idx := indexer.New(loader, splitter, store, logger)
	ret := retriever.New(store, logger)
	match := matcher.New(ret, completer, matcher.Options{
		MinScore:   cfg.Matcher.MinScore,
		MaxMatches: cfg.Matcher.MaxMatches,
	}, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		indexer:   idx,
		retriever: ret,
		matcher:   match,
	}, nil
}

// close releases resources; errors are logged, not returned.
func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing vector store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
