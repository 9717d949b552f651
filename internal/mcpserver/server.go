// Package mcpserver exposes evidence retrieval and edge matching as MCP
// tools over stdio, so agent clients can query the corpus directly.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/beaconlabs-io/muse-evidence/internal/matcher"
	"github.com/beaconlabs-io/muse-evidence/internal/retriever"
)

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "mused").
	Name string

	// Version is the server version (default: "1.0.0").
	Version string

	Logger *zap.Logger
}

// Server serves the search_evidence and match_edge tools.
type Server struct {
	mcp       *mcp.Server
	retriever *retriever.Service
	matcher   *matcher.Service
	logger    *zap.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg *Config, ret *retriever.Service, match *matcher.Service) (*Server, error) {
	if ret == nil {
		return nil, fmt.Errorf("retriever service is required")
	}
	if match == nil {
		return nil, fmt.Errorf("matcher service is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Name == "" {
		cfg.Name = "mused"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:       mcpServer,
		retriever: ret,
		matcher:   match,
		logger:    cfg.Logger,
	}
	s.registerTools()
	return s, nil
}

type searchEvidenceInput struct {
	Query string `json:"query" jsonschema:"required,Natural-language query describing the topic or causal relationship to find evidence for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"Maximum number of documents to return (default: 5)"`
}

type searchEvidenceOutput struct {
	Evidence       []retriever.RetrievedEvidence `json:"evidence" jsonschema:"Matching documents, best first"`
	TotalRetrieved int                           `json:"total_retrieved" jsonschema:"Raw chunk hit count before per-document deduplication"`
	QueryUsed      string                        `json:"query_used" jsonschema:"The query string actually searched"`
}

type matchEdgeInput struct {
	From string `json:"from" jsonschema:"required,Text of the cause node of the logic-model edge"`
	To   string `json:"to" jsonschema:"required,Text of the effect node of the logic-model edge"`
}

type matchEdgeOutput struct {
	Matches []matcher.Match `json:"matches" jsonschema:"Documents judged to support the edge, strongest first"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_evidence",
		Description: "Semantic search over the indexed research evidence corpus. Returns whole documents with their best-matching excerpt, similarity score, citation, and methodological strength.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchEvidenceInput) (*mcp.CallToolResult, searchEvidenceOutput, error) {
		if args.Query == "" {
			return nil, searchEvidenceOutput{}, fmt.Errorf("query is required")
		}

		result, err := s.retriever.Retrieve(ctx, args.Query, args.TopK)
		if err != nil {
			s.logger.Error("search_evidence failed", zap.Error(err))
			return nil, searchEvidenceOutput{}, err
		}

		return nil, searchEvidenceOutput{
			Evidence:       result.Evidence,
			TotalRetrieved: result.TotalRetrieved,
			QueryUsed:      result.QueryUsed,
		}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "match_edge",
		Description: "Find research evidence supporting a causal claim between two logic-model nodes. Scores each candidate document 0-100 and returns those above the match threshold, flagged when the underlying study design is weak.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args matchEdgeInput) (*mcp.CallToolResult, matchEdgeOutput, error) {
		if args.From == "" || args.To == "" {
			return nil, matchEdgeOutput{}, fmt.Errorf("from and to are required")
		}

		matches, err := s.matcher.MatchEdge(ctx, args.From, args.To, matcher.Options{})
		if err != nil {
			s.logger.Error("match_edge failed", zap.Error(err))
			return nil, matchEdgeOutput{}, err
		}
		if matches == nil {
			matches = []matcher.Match{}
		}
		return nil, matchEdgeOutput{Matches: matches}, nil
	})
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
