// Package httpapi provides the HTTP API for mused.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/beaconlabs-io/muse-evidence/internal/indexer"
	"github.com/beaconlabs-io/muse-evidence/internal/matcher"
	"github.com/beaconlabs-io/muse-evidence/internal/retriever"
)

// indexTimeout bounds a full re-index triggered over HTTP.
const indexTimeout = 300 * time.Second

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides HTTP endpoints for indexing, retrieval, and matching.
type Server struct {
	echo      *echo.Echo
	indexer   *indexer.Service
	retriever *retriever.Service
	matcher   *matcher.Service
	logger    *zap.Logger
	config    Config

	// indexMu serializes indexing runs; concurrent triggers would race on
	// clear-then-upsert.
	indexMu     sync.Mutex
	lastIndexed time.Time
}

// NewServer creates the HTTP server and registers routes.
func NewServer(idx *indexer.Service, ret *retriever.Service, match *matcher.Service, logger *zap.Logger, cfg Config) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 8765
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewMetrics(logger).Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:      e,
		indexer:   idx,
		retriever: ret,
		matcher:   match,
		logger:    logger,
		config:    cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/index", s.handleIndex)
	v1.POST("/retrieve", s.handleRetrieve)
	v1.POST("/match", s.handleMatch)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// IndexData is the data payload of a successful indexing response.
type IndexData struct {
	Embedded      int                     `json:"embedded"`
	Errors        []indexer.DocumentError `json:"errors,omitempty"`
	Duration      string                  `json:"duration"`
	Cost          string                  `json:"cost"`
	VectorsBefore int64                   `json:"vectorsBefore"`
	VectorsAfter  int64                   `json:"vectorsAfter"`
	LastUpdated   string                  `json:"lastUpdated"`
}

// IndexResponse is the response body for GET /api/v1/index.
type IndexResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    *IndexData `json:"data,omitempty"`
}

// handleIndex triggers a full indexing run. ?clear=true drops the
// collection first.
func (s *Server) handleIndex(c echo.Context) error {
	clearFirst, _ := strconv.ParseBool(c.QueryParam("clear"))

	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	ctx, cancel := context.WithTimeout(c.Request().Context(), indexTimeout)
	defer cancel()

	result, err := s.indexer.IndexAll(ctx, indexer.Options{ClearFirst: clearFirst}, nil)
	if err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, IndexResponse{
			Success: false,
			Message: fmt.Sprintf("indexing failed: %v", err),
		})
	}

	s.lastIndexed = time.Now().UTC()
	msg := fmt.Sprintf("indexed %d documents", result.TotalEmbedded)
	if len(result.Errors) > 0 {
		msg = fmt.Sprintf("indexed %d documents, %d failed", result.TotalEmbedded, len(result.Errors))
	}

	return c.JSON(http.StatusOK, IndexResponse{
		Success: result.Success,
		Message: msg,
		Data: &IndexData{
			Embedded:      result.TotalEmbedded,
			Errors:        result.Errors,
			Duration:      result.Duration.Round(time.Millisecond).String(),
			Cost:          fmt.Sprintf("$%.6f", result.EstimatedCost),
			VectorsBefore: result.VectorsBefore,
			VectorsAfter:  result.VectorsAfter,
			LastUpdated:   s.lastIndexed.Format(time.RFC3339),
		},
	})
}

// RetrieveRequest is the request body for POST /api/v1/retrieve.
type RetrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

func (s *Server) handleRetrieve(c echo.Context) error {
	var req RetrieveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	result, err := s.retriever.Retrieve(c.Request().Context(), req.Query, req.TopK)
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "retrieval failed")
	}
	return c.JSON(http.StatusOK, result)
}

// MatchRequest is the request body for POST /api/v1/match.
type MatchRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	MaxMatches int    `json:"maxMatches"`
	MinScore   int    `json:"minScore"`
}

// MatchResponse is the response body for POST /api/v1/match.
type MatchResponse struct {
	Matches []matcher.Match `json:"matches"`
}

func (s *Server) handleMatch(c echo.Context) error {
	var req MatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.From == "" || req.To == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "from and to fields are required")
	}

	matches, err := s.matcher.MatchEdge(c.Request().Context(), req.From, req.To, matcher.Options{
		MaxMatches: req.MaxMatches,
		MinScore:   req.MinScore,
	})
	if err != nil {
		s.logger.Error("matching failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "matching failed")
	}
	if matches == nil {
		matches = []matcher.Match{}
	}
	return c.JSON(http.StatusOK, MatchResponse{Matches: matches})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
