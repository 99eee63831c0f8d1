// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/gurag"
	"github.com/poiesic/gurag/core"
	"github.com/poiesic/gurag/ingestion"
	"github.com/poiesic/gurag/orchestrator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type server struct {
	db       *gurag.Database
	orch     *orchestrator.Orchestrator
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
}

func newRouter(s *server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))

	router.POST("/search", s.search)
	router.POST("/ingest", s.ingest)
	router.GET("/status", s.status)
	router.DELETE("/admin/cache", s.clearCache)
	router.POST("/admin/init-db", s.initDB)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

func (s *server) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "kind": "validation"})
		return
	}

	resp, err := s.orch.Search(c.Request.Context(), req.Query)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) ingest(c *gin.Context) {
	var req ingestion.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "kind": "validation"})
		return
	}

	entry, err := s.orch.Ingest(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Content ingested successfully",
		"knowledge_id": entry.Id,
	})
}

func (s *server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.db.Status(c.Request.Context()))
}

func (s *server) initDB(c *gin.Context) {
	if err := s.db.InitSchema(c.Request.Context()); err != nil {
		s.logger.Error("schema initialization failed", "err", err)
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Database schema initialized successfully"})
}

func (s *server) clearCache(c *gin.Context) {
	deleted, err := s.db.ClearCache(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Cache cleared: %d entries deleted", deleted)})
}

func handleError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error(), "kind": core.KindName(err)}
	var tierErr *core.TierError
	if errors.As(err, &tierErr) {
		body["tier"] = tierErr.Tier
		body["op"] = tierErr.Op
	}

	switch {
	case errors.Is(err, core.ErrEmbedding), errors.Is(err, core.ErrGeneration):
		c.JSON(http.StatusBadGateway, body)
	case core.IsValidation(err):
		c.JSON(http.StatusBadRequest, body)
	default:
		c.JSON(http.StatusInternalServerError, body)
	}
}
