package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/engine"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/market"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/risk"
)

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, status)
}

// handleAnalyze runs the full pipeline for one symbol.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req engine.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	if req.Params == nil {
		req.Params = s.resolveParams(c, req.UserID)
	}

	result, err := s.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, market.ErrNoData):
			c.JSON(http.StatusBadGateway, gin.H{"error": "no market data for symbol", "symbol": req.Symbol})
		case errors.Is(err, risk.ErrDailyLossLimit):
			c.JSON(http.StatusConflict, gin.H{"error": "daily loss limit reached, no new positions today"})
		default:
			s.logger.Error().Err(err).Str("symbol", req.Symbol).Msg("analyze failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleScanResult returns the latest background scan result.
func (s *Server) handleScanResult(c *gin.Context) {
	result := s.scanner.LastResult()
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scan has completed yet"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// resolveParams loads the user's learned parameters so every forward pass
// picks up what the learning engine persisted. Defaults apply when the user is
// anonymous, no store is wired, or the lookup fails.
func (s *Server) resolveParams(c *gin.Context, userID string) *engine.AnalysisParameters {
	if userID == "" || s.params == nil {
		return nil
	}
	params, err := s.params.GetParameters(c.Request.Context(), userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user", userID).Msg("loading learned parameters failed, using defaults")
		return nil
	}
	return &params
}

// handleScanRun triggers a scan synchronously. An omitted threshold falls back
// to the configured one, same as the background loop.
func (s *Server) handleScanRun(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	threshold := s.scanner.ScoreThreshold()
	if v := c.Query("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold"})
			return
		}
		threshold = f
	}

	user := c.Query("user")
	result, err := s.scanner.Scan(c.Request.Context(), limit, threshold, user, s.resolveParams(c, user))
	if err != nil {
		s.logger.Error().Err(err).Msg("manual scan failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "scan failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleLearningRun executes one learning pass for a user. Insufficient
// history is a 200 with applied=false, not an error.
func (s *Server) handleLearningRun(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	report, err := s.learner.Run(c.Request.Context(), req.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user", req.UserID).Msg("learning pass failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "learning pass failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleGetParams(c *gin.Context) {
	params, err := s.params.GetParameters(c.Request.Context(), c.Param("user"))
	if err != nil {
		s.logger.Error().Err(err).Str("user", c.Param("user")).Msg("loading parameters failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading parameters failed"})
		return
	}
	c.JSON(http.StatusOK, params)
}

func (s *Server) handlePutParams(c *gin.Context) {
	var params engine.AnalysisParameters
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parameters: " + err.Error()})
		return
	}
	params = params.Normalize()

	if err := s.params.UpsertParameters(c.Request.Context(), c.Param("user"), params); err != nil {
		s.logger.Error().Err(err).Str("user", c.Param("user")).Msg("saving parameters failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "saving parameters failed"})
		return
	}
	c.JSON(http.StatusOK, params)
}
