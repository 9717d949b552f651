// Package indexer walks the evidence corpus, chunks each document, and
// upserts the chunks into the vector store.
//
// Indexing is strictly sequential per document. A failing document is
// recorded and skipped; the run only fails outright when the store is
// unreachable or every document failed.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/beaconlabs-io/muse-evidence/internal/chunker"
	"github.com/beaconlabs-io/muse-evidence/internal/evidence"
	"github.com/beaconlabs-io/muse-evidence/internal/vectorstore"
)

var tracer = otel.Tracer("github.com/beaconlabs-io/muse-evidence/internal/indexer")

// embeddingCostPerMillionTokens is the list price used for the rough cost
// estimate reported after a run. Tokens are approximated as chars/4.
const embeddingCostPerMillionTokens = 0.02

// DocumentError records a document that failed to index.
type DocumentError struct {
	DocumentID string `json:"documentId"`
	Message    string `json:"message"`
}

// Result summarizes an indexing run.
type Result struct {
	// Success is false only when the store was unreachable or every
	// document failed.
	Success bool `json:"success"`

	// TotalEmbedded counts documents successfully embedded, not chunks.
	TotalEmbedded int `json:"totalEmbedded"`

	// Errors lists documents that were skipped.
	Errors []DocumentError `json:"errors,omitempty"`

	// VectorsBefore and VectorsAfter are collection point counts taken
	// around the run, best-effort (-1 when unavailable).
	VectorsBefore int64 `json:"vectorsBefore"`
	VectorsAfter  int64 `json:"vectorsAfter"`

	// EstimatedCost is the approximate embedding spend in USD.
	EstimatedCost float64 `json:"estimatedCost"`

	Duration time.Duration `json:"-"`
}

// Options controls a single indexing run.
type Options struct {
	// ClearFirst drops the collection before indexing so removed
	// documents do not linger.
	ClearFirst bool
}

// Progress reports per-document progress during a run.
type Progress struct {
	DocumentID string
	Current    int
	Total      int
	Err        error
}

// ProgressFunc observes indexing progress. It must not block; the indexer
// continues regardless of what the callback does.
type ProgressFunc func(Progress)

// Service indexes evidence documents into a vector store.
type Service struct {
	loader   *evidence.Loader
	splitter *chunker.Splitter
	store    vectorstore.Store
	logger   *zap.Logger
}

// New creates an indexing service.
func New(loader *evidence.Loader, splitter *chunker.Splitter, store vectorstore.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		loader:   loader,
		splitter: splitter,
		store:    store,
		logger:   logger,
	}
}

// IndexAll loads every evidence document, chunks it, and upserts the chunks.
// onProgress may be nil.
func (s *Service) IndexAll(ctx context.Context, opts Options, onProgress ProgressFunc) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Indexer.IndexAll")
	defer span.End()

	start := time.Now()
	result := &Result{VectorsBefore: -1, VectorsAfter: -1}

	docs, loadErrs, err := s.loader.LoadAll()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, fmt.Errorf("loading evidence: %w", err)
	}
	for _, le := range loadErrs {
		result.Errors = append(result.Errors, DocumentError{DocumentID: le.DocumentID, Message: le.Message})
	}

	if info, err := s.store.Info(ctx); err == nil {
		result.VectorsBefore = info.PointCount
	}

	if opts.ClearFirst {
		if err := s.store.Clear(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "clear failed")
			return nil, fmt.Errorf("clearing collection: %w", err)
		}
		s.logger.Info("cleared collection before indexing")
	}

	var totalChars int
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		docErr := s.indexDocument(ctx, &doc)
		if docErr != nil {
			s.logger.Warn("document failed to index",
				zap.String("document_id", doc.ID),
				zap.Error(docErr))
			result.Errors = append(result.Errors, DocumentError{
				DocumentID: doc.ID,
				Message:    docErr.Error(),
			})
		} else {
			result.TotalEmbedded++
			totalChars += len(doc.Body)
		}

		if onProgress != nil {
			onProgress(Progress{
				DocumentID: doc.ID,
				Current:    i + 1,
				Total:      len(docs),
				Err:        docErr,
			})
		}
	}

	if info, err := s.store.Info(ctx); err == nil {
		result.VectorsAfter = info.PointCount
	}

	result.EstimatedCost = float64(totalChars) / 4 / 1_000_000 * embeddingCostPerMillionTokens
	result.Duration = time.Since(start)
	result.Success = result.TotalEmbedded > 0 || (len(docs) == 0 && len(loadErrs) == 0)

	span.SetAttributes(
		attribute.Int("documents.total", len(docs)),
		attribute.Int("documents.embedded", result.TotalEmbedded),
		attribute.Int("documents.failed", len(result.Errors)),
	)
	s.logger.Info("indexing run complete",
		zap.Int("embedded", result.TotalEmbedded),
		zap.Int("failed", len(result.Errors)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// indexDocument chunks one document and upserts its chunks in a single batch.
func (s *Service) indexDocument(ctx context.Context, doc *evidence.Document) error {
	ctx, span := tracer.Start(ctx, "Indexer.indexDocument")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", doc.ID))

	if err := doc.Validate(); err != nil {
		return err
	}

	chunks := s.splitter.Split(doc.Body)
	if len(chunks) == 0 {
		return fmt.Errorf("document produced no chunks")
	}

	storeDocs := make([]vectorstore.Document, 0, len(chunks))
	for _, c := range chunks {
		storeDocs = append(storeDocs, vectorstore.Document{
			ID:       fmt.Sprintf("%s#%d", doc.ID, c.Index),
			Content:  c.Text,
			Metadata: chunkMetadata(doc, c.Index),
		})
	}

	if _, err := s.store.AddDocuments(ctx, storeDocs); err != nil {
		span.RecordError(err)
		return fmt.Errorf("upserting chunks: %w", err)
	}

	s.logger.Debug("indexed document",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)))
	return nil
}

// chunkMetadata builds the per-chunk payload. Shape is fixed here so
// retrieval can trust the keys.
func chunkMetadata(doc *evidence.Document, chunkIndex int) map[string]interface{} {
	meta := map[string]interface{}{
		vectorstore.MetaDocumentID: doc.ID,
		vectorstore.MetaTitle:      doc.Title,
		vectorstore.MetaChunkIndex: chunkIndex,
	}
	if c := doc.Citation(); c != "" {
		meta[vectorstore.MetaCitation] = c
	}
	if len(doc.Tags) > 0 {
		meta[vectorstore.MetaTags] = strings.Join(doc.Tags, ",")
	}
	if doc.Strength != nil {
		meta[vectorstore.MetaStrength] = doc.Strength.Int()
	}
	if len(doc.Results) > 0 {
		if b, err := json.Marshal(doc.Results); err == nil {
			meta[vectorstore.MetaResults] = string(b)
		}
	}
	return meta
}
