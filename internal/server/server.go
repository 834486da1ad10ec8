// Package server exposes the calculation engine over HTTP.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tracekit/carbontrace/internal/common"
	"github.com/tracekit/carbontrace/internal/engine"
	"github.com/tracekit/carbontrace/internal/model"
	"github.com/tracekit/carbontrace/internal/normalize"
	"github.com/tracekit/carbontrace/internal/service"
)

// maxBodyBytes caps request payloads; activity batches are small.
const maxBodyBytes = 4 << 20

// Server wires the engine and optional history storage into a gin router.
type Server struct {
	engine *engine.Engine
	store  service.Storage
}

// New creates a server. store may be nil, which disables history endpoints
// and result persistence.
func New(calcEngine *engine.Engine, store service.Storage) *Server {
	return &Server{engine: calcEngine, store: store}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())

	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.POST("/calculate", s.calculate)
		api.POST("/extract-records", s.extractRecords)
		api.GET("/history", s.listHistory)
		api.GET("/history/:id", s.getHistory)
	}

	return r
}

// Run serves until the listener fails or the process exits.
func (s *Server) Run(addr string) error {
	slog.Info("Starting HTTP server", "addr", addr)
	return s.Router().Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// calculate accepts either the per-category object shape or a flat array of
// extraction records, runs the engine, and persists the result when history
// storage is configured.
func (s *Server) calculate(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}

	result, err := s.engine.CalculateRaw(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, common.ErrMalformedInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Calculation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "calculation failed"})
		return
	}

	s.persist(c.Request.Context(), payload, result)
	c.JSON(http.StatusOK, result)
}

// persist appends the calculation to history. Persistence failures are logged
// but never fail the request; the caller already has the result.
func (s *Server) persist(ctx context.Context, inputs []byte, result *model.EmissionsResult) {
	if s.store == nil {
		return
	}

	results, err := json.Marshal(result)
	if err != nil {
		slog.Error("Could not marshal calculation results", "error", err)
		return
	}
	if _, err := s.store.SaveCalculation(ctx, inputs, results); err != nil {
		slog.Error("Could not save calculation history", "error", err)
	}
}

// extractRecords buckets mined receipt records by category without running a
// calculation.
func (s *Server) extractRecords(c *gin.Context) {
	var records []model.Record
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid records payload: %v", err)})
		return
	}

	c.JSON(http.StatusOK, normalize.Bucket(records))
}

func (s *Server) listHistory(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history storage not configured"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	calcs, err := s.store.ListCalculations(c.Request.Context(), limit, offset)
	if err != nil {
		slog.Error("Could not list calculations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list calculations"})
		return
	}
	if calcs == nil {
		calcs = []model.Calculation{}
	}

	c.JSON(http.StatusOK, gin.H{"calculations": calcs})
}

func (s *Server) getHistory(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history storage not configured"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid calculation id"})
		return
	}

	calc, err := s.store.GetCalculation(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "calculation not found"})
			return
		}
		slog.Error("Could not load calculation", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load calculation"})
		return
	}

	c.JSON(http.StatusOK, calc)
}
