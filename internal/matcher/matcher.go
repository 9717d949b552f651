// Package matcher attaches supporting research evidence to logic-model
// edges. For a causal claim "fromText -> toText" it derives search
// keywords, retrieves candidate documents, and asks an LLM to judge how
// directly each document supports the claim.
package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/beaconlabs-io/muse-evidence/internal/evidence"
	"github.com/beaconlabs-io/muse-evidence/internal/llm"
	"github.com/beaconlabs-io/muse-evidence/internal/retriever"
)

var tracer = otel.Tracer("github.com/beaconlabs-io/muse-evidence/internal/matcher")

// Matching thresholds.
const (
	// EvidenceMatchThreshold is the minimum 0-100 relevance score for a
	// document to count as a match.
	EvidenceMatchThreshold = 70

	// MaxMatchesPerEdge caps how many matches an edge reports.
	MaxMatchesPerEdge = 3

	// EvidenceQualityThreshold is the Maryland-scale strength below which
	// a match carries a quality warning.
	EvidenceQualityThreshold = 3

	// candidateTopK is the minimum number of documents retrieval
	// surfaces for scoring. Retrieval widens when MaxMatches exceeds it.
	candidateTopK = 5
)

// KeywordResult is the outcome of keyword derivation. Fallback is true
// when the LLM was unavailable or failed and the deterministic query was
// used instead.
type KeywordResult struct {
	Keywords []string `json:"keywords"`
	Fallback bool     `json:"fallback"`
}

// Query joins the keywords into a single search string.
func (k KeywordResult) Query() string {
	return strings.Join(k.Keywords, " ")
}

// Match is one document judged to support an edge.
type Match struct {
	DocumentID string             `json:"documentId"`
	Title      string             `json:"title"`
	Score      int                `json:"score"`
	Reasoning  string             `json:"reasoning,omitempty"`
	Strength   *evidence.Strength `json:"strength,omitempty"`
	Citation   string             `json:"citation,omitempty"`

	// HasWarning is set when the document's methodological strength is
	// known and below the quality threshold. Weak matches are flagged,
	// never dropped.
	HasWarning bool `json:"hasWarning"`
}

// Options tunes a matching call. Zero values take the package defaults.
type Options struct {
	MaxMatches int
	MinScore   int
}

// applyDefaults resolves zero fields against the service defaults first,
// then the package constants.
func (o *Options) applyDefaults(base Options) {
	if o.MaxMatches <= 0 {
		o.MaxMatches = base.MaxMatches
	}
	if o.MaxMatches <= 0 {
		o.MaxMatches = MaxMatchesPerEdge
	}
	if o.MinScore <= 0 {
		o.MinScore = base.MinScore
	}
	if o.MinScore <= 0 {
		o.MinScore = EvidenceMatchThreshold
	}
}

// Service matches evidence documents to edges.
type Service struct {
	retriever *retriever.Service
	completer llm.Completer
	defaults  Options
	logger    *zap.Logger
}

// New creates a matching service. defaults fills Options fields callers
// leave zero. completer may be a disabled client; the keyword step falls
// back deterministically but scoring requires an LLM.
func New(ret *retriever.Service, completer llm.Completer, defaults Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{retriever: ret, completer: completer, defaults: defaults, logger: logger}
}

// MatchEdge finds documents supporting the causal claim fromText -> toText.
// An empty slice means no document scored above the threshold.
func (s *Service) MatchEdge(ctx context.Context, fromText, toText string, opts Options) ([]Match, error) {
	ctx, span := tracer.Start(ctx, "Matcher.MatchEdge")
	defer span.End()
	opts.applyDefaults(s.defaults)

	fromText = strings.TrimSpace(fromText)
	toText = strings.TrimSpace(toText)
	if fromText == "" || toText == "" {
		return nil, fmt.Errorf("edge endpoints cannot be empty")
	}

	keywords := s.DeriveKeywords(ctx, fromText, toText)
	span.SetAttributes(
		attribute.StringSlice("match.keywords", keywords.Keywords),
		attribute.Bool("match.keyword_fallback", keywords.Fallback),
	)

	retrieved, err := s.retriever.Retrieve(ctx, keywords.Query(), max(candidateTopK, opts.MaxMatches))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return nil, fmt.Errorf("retrieving candidates: %w", err)
	}

	matches := make([]Match, 0, opts.MaxMatches)
	for _, cand := range retrieved.Evidence {
		score, reasoning, err := s.scoreCandidate(ctx, fromText, toText, cand)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "scoring failed")
			return nil, fmt.Errorf("scoring %s: %w", cand.DocumentID, err)
		}
		if score < opts.MinScore {
			continue
		}
		matches = append(matches, Match{
			DocumentID: cand.DocumentID,
			Title:      cand.Title,
			Score:      score,
			Reasoning:  reasoning,
			Strength:   cand.Strength,
			Citation:   cand.Citation,
			HasWarning: cand.Strength != nil && cand.Strength.Int() < EvidenceQualityThreshold,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > opts.MaxMatches {
		matches = matches[:opts.MaxMatches]
	}

	s.logger.Info("edge matched",
		zap.String("from", fromText),
		zap.String("to", toText),
		zap.Int("candidates", len(retrieved.Evidence)),
		zap.Int("matches", len(matches)))
	return matches, nil
}

// DeriveKeywords asks the LLM for search keywords describing the edge.
// Any failure, including a disabled client, yields the deterministic
// fallback query so matching always proceeds.
func (s *Service) DeriveKeywords(ctx context.Context, fromText, toText string) KeywordResult {
	fallback := KeywordResult{Keywords: []string{fromText, toText}, Fallback: true}

	raw, err := s.completer.Complete(ctx, keywordPrompt(fromText, toText))
	if err != nil {
		if err != llm.ErrNotConfigured {
			s.logger.Warn("keyword derivation failed, using fallback", zap.Error(err))
		}
		return fallback
	}

	var parsed struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal(extractJSON(raw), &parsed); err != nil || len(parsed.Keywords) == 0 {
		s.logger.Warn("keyword response unparseable, using fallback", zap.String("raw", raw))
		return fallback
	}
	return KeywordResult{Keywords: parsed.Keywords}
}

// scoreCandidate asks the LLM how directly one document supports the edge.
func (s *Service) scoreCandidate(ctx context.Context, fromText, toText string, cand retriever.RetrievedEvidence) (int, string, error) {
	raw, err := s.completer.Complete(ctx, scoringPrompt(fromText, toText, cand))
	if err != nil {
		return 0, "", err
	}

	var parsed struct {
		Score     int    `json:"score"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal(extractJSON(raw), &parsed); err != nil {
		return 0, "", fmt.Errorf("parsing score response: %w", err)
	}
	if parsed.Score < 0 {
		parsed.Score = 0
	}
	if parsed.Score > 100 {
		parsed.Score = 100
	}
	return parsed.Score, parsed.Reasoning, nil
}

// extractJSON strips markdown code fences some models wrap around JSON.
func extractJSON(raw string) []byte {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if i := strings.LastIndex(trimmed, "```"); i >= 0 {
			trimmed = trimmed[:i]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	if start := strings.Index(trimmed, "{"); start > 0 {
		trimmed = trimmed[start:]
	}
	return []byte(trimmed)
}
