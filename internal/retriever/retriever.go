// Package retriever answers semantic queries over the indexed evidence
// corpus, collapsing chunk-level hits back to whole documents.
package retriever

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/beaconlabs-io/muse-evidence/internal/evidence"
	"github.com/beaconlabs-io/muse-evidence/internal/vectorstore"
)

var tracer = otel.Tracer("github.com/beaconlabs-io/muse-evidence/internal/retriever")

// ErrRetrieval wraps any failure during retrieval so callers can
// distinguish "search broke" from "nothing matched".
var ErrRetrieval = errors.New("retrieval failed")

// DefaultTopK is used when the caller passes topK <= 0.
const DefaultTopK = 5

// overfetchFactor controls how many raw chunk hits are pulled per
// requested document. Multiple chunks of the same document can dominate
// the raw ranking, so we fetch extra and deduplicate.
const overfetchFactor = 4

// RetrievedEvidence is one matched document with its best-scoring chunk.
type RetrievedEvidence struct {
	DocumentID string            `json:"documentId"`
	Title      string            `json:"title"`
	Summary    string            `json:"summary"`
	Score      float32           `json:"score"`
	Strength   *evidence.Strength `json:"strength,omitempty"`
	Results    []evidence.Result `json:"results,omitempty"`
	Citation   string            `json:"citation,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
}

// Result is the outcome of a retrieval call.
type Result struct {
	Evidence []RetrievedEvidence `json:"evidence"`

	// TotalRetrieved is the raw chunk hit count before deduplication.
	TotalRetrieved int `json:"totalRetrieved"`

	QueryUsed string `json:"queryUsed"`
}

// Service performs similarity search against a vector store.
type Service struct {
	store  vectorstore.Store
	logger *zap.Logger
}

// New creates a retrieval service.
func New(store vectorstore.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Retrieve embeds the query, searches, and returns the topK best-matching
// documents. An empty result is not an error.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Retriever.Retrieve")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrRetrieval)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	span.SetAttributes(attribute.Int("retrieve.top_k", topK))

	hits, err := s.store.Search(ctx, query, topK*overfetchFactor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	result := &Result{
		Evidence:       dedupeByDocument(hits, topK),
		TotalRetrieved: len(hits),
		QueryUsed:      query,
	}

	s.logger.Debug("retrieval complete",
		zap.String("query", query),
		zap.Int("raw_hits", len(hits)),
		zap.Int("documents", len(result.Evidence)))
	return result, nil
}

// dedupeByDocument keeps the top-scoring chunk per document, then truncates
// to topK by descending score. Search results arrive score-descending, so
// the first chunk seen per document is its best.
func dedupeByDocument(hits []vectorstore.SearchResult, topK int) []RetrievedEvidence {
	seen := make(map[string]bool, len(hits))
	out := make([]RetrievedEvidence, 0, topK)
	for _, hit := range hits {
		docID, _ := hit.Metadata[vectorstore.MetaDocumentID].(string)
		if docID == "" || seen[docID] {
			continue
		}
		seen[docID] = true
		out = append(out, fromSearchResult(docID, hit))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

func fromSearchResult(docID string, hit vectorstore.SearchResult) RetrievedEvidence {
	re := RetrievedEvidence{
		DocumentID: docID,
		Summary:    hit.Content,
		Score:      hit.Score,
	}
	if title, ok := hit.Metadata[vectorstore.MetaTitle].(string); ok {
		re.Title = title
	}
	if citation, ok := hit.Metadata[vectorstore.MetaCitation].(string); ok {
		re.Citation = citation
	}
	if tags, ok := hit.Metadata[vectorstore.MetaTags].(string); ok && tags != "" {
		re.Tags = strings.Split(tags, ",")
	}
	re.Strength = strengthFromMetadata(hit.Metadata[vectorstore.MetaStrength])
	if raw, ok := hit.Metadata[vectorstore.MetaResults].(string); ok && raw != "" {
		var results []evidence.Result
		if err := json.Unmarshal([]byte(raw), &results); err == nil {
			re.Results = results
		}
	}
	return re
}

// strengthFromMetadata tolerates the numeric type differences between store
// backends (chromem round-trips strings, qdrant payloads decode as float64
// or int64).
func strengthFromMetadata(v interface{}) *evidence.Strength {
	switch n := v.(type) {
	case string:
		s, err := evidence.ParseStrength(n)
		if err != nil {
			return nil
		}
		return s
	case int:
		return strengthFromInt(n)
	case int64:
		return strengthFromInt(int(n))
	case float64:
		return strengthFromInt(int(n))
	}
	return nil
}

func strengthFromInt(n int) *evidence.Strength {
	if n < 0 || n > evidence.MaxStrength {
		return nil
	}
	s := evidence.Strength(n)
	return &s
}
