package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/engine"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/learning"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/scanner"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int      `json:"port"`
	ProductionMode bool     `json:"production_mode"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// Analyzer runs one analysis pass.
type Analyzer interface {
	Analyze(ctx context.Context, req engine.AnalyzeRequest) (*engine.AnalysisResult, error)
}

// Learner runs one learning pass.
type Learner interface {
	Run(ctx context.Context, userID string) (*learning.Report, error)
}

// ParamsStore reads and writes user analysis parameters.
type ParamsStore interface {
	GetParameters(ctx context.Context, userID string) (engine.AnalysisParameters, error)
	UpsertParameters(ctx context.Context, userID string, params engine.AnalysisParameters) error
}

// Server is the HTTP API.
type Server struct {
	router   *gin.Engine
	analyzer Analyzer
	scanner  *scanner.Scanner
	learner  Learner
	params   ParamsStore
	health   func(ctx context.Context) error
	cfg      ServerConfig
	logger   zerolog.Logger
	srv      *http.Server
}

// NewServer creates the API server. learner, params and health may be nil,
// disabling the corresponding endpoints.
func NewServer(cfg ServerConfig, analyzer Analyzer, sc *scanner.Scanner, learner Learner, params ParamsStore, health func(ctx context.Context) error, logger zerolog.Logger) *Server {
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:   router,
		analyzer: analyzer,
		scanner:  sc,
		learner:  learner,
		params:   params,
		health:   health,
		cfg:      cfg,
		logger:   logger.With().Str("component", "api").Logger(),
	}
	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/v1")
	{
		api.POST("/analyze", s.handleAnalyze)
		api.GET("/scan", s.handleScanResult)
		api.POST("/scan/run", s.handleScanRun)
		if s.learner != nil {
			api.POST("/learning/run", s.handleLearningRun)
		}
		if s.params != nil {
			api.GET("/params/:user", s.handleGetParams)
			api.PUT("/params/:user", s.handlePutParams)
		}
	}
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	s.logger.Info().Int("port", s.cfg.Port).Msg("API server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
