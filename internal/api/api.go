// Package api wires gin HTTP routes to the CAG engine, supplementing
// the CLI surface with a network-reachable one.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cagcore/engine/internal/engine"
	"github.com/cagcore/engine/internal/warmer"
	"github.com/cagcore/engine/pkg/models"
)

// Server bundles the gin router with the engine it serves.
type Server struct {
	engine *engine.Engine
	router *gin.Engine
}

// NewServer builds a gin router with the CAG routes registered.
func NewServer(eng *engine.Engine) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{engine: eng, router: router}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler to pass to an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	v1 := s.router.Group("/v1")
	v1.POST("/query", s.handleQuery)
	v1.POST("/cache/warm", s.handleWarm)
	v1.POST("/cache/warm-domain", s.handleWarmDomain)
	v1.GET("/cache/summary", s.handleCacheSummary)
	v1.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

type queryRequest struct {
	Query     string   `json:"query" binding:"required"`
	SessionID string   `json:"session_id" binding:"required"`
	Keywords  []string `json:"keywords"`
	Project   string   `json:"project"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var uc *warmer.UserContext
	if len(req.Keywords) > 0 || req.Project != "" {
		uc = &warmer.UserContext{Keywords: req.Keywords, Project: req.Project}
	}

	envelope, err := s.engine.ProcessQuery(c.Request.Context(), req.Query, req.SessionID, uc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, envelope)
}

type warmRequest struct {
	SessionID string   `json:"session_id" binding:"required"`
	Keywords  []string `json:"keywords"`
	Project   string   `json:"project"`
}

func (s *Server) handleWarm(c *gin.Context) {
	var req warmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uc := warmer.Default()
	if len(req.Keywords) > 0 {
		uc.Keywords = req.Keywords
	}
	if req.Project != "" {
		uc.Project = req.Project
	}

	// Route warming through ProcessQuery's ensure-warmed path so the
	// idempotency and registry bookkeeping stay in one place; a blank
	// query still exercises context loading but callers that just want
	// warming can ignore full_context in the response.
	envelope, err := s.engine.ProcessQuery(c.Request.Context(), "", req.SessionID, &uc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":             envelope.SessionID,
		"cached_knowledge_items": envelope.CachedKnowledgeItems,
	})
}

type warmDomainRequest struct {
	Domain   string `json:"domain" binding:"required"`
	Priority string `json:"priority"`
}

func (s *Server) handleWarmDomain(c *gin.Context) {
	var req warmDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result := s.engine.WarmDomainCache(c.Request.Context(), req.Domain, req.Priority)
	c.JSON(http.StatusOK, gin.H{
		"items_loaded": result.ItemsLoaded,
		"success":      result.Success,
	})
}

func (s *Server) handleCacheSummary(c *gin.Context) {
	layer := models.ContextLayer(c.Query("layer"))
	summary := s.engine.GetCachedKnowledgeSummary(layer)
	c.JSON(http.StatusOK, summary)
}
