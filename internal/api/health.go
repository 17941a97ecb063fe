package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Pathways int               `json:"pathways"`
	Checks   map[string]string `json:"checks,omitempty"`
}

// runChecks runs every dependency check and reports whether all passed
func (s *Server) runChecks(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.deps.Checks))
	for name := range s.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := s.deps.Checks[name](ctx); err != nil {
			checks[name] = fmt.Sprintf("unhealthy: %v", err)
			healthy = false
			continue
		}
		checks[name] = "healthy"
	}
	return checks, healthy
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(c *gin.Context) {
	checks, healthy := s.runChecks(c.Request.Context())
	resp := HealthResponse{
		Status:   "healthy",
		Pathways: len(s.deps.Store.ListIDs()),
		Checks:   checks,
	}
	if !healthy {
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleReady handles the /ready endpoint
func (s *Server) handleReady(c *gin.Context) {
	if len(s.deps.Store.ListIDs()) == 0 {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "not ready"})
		return
	}
	if _, healthy := s.runChecks(c.Request.Context()); !healthy {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "not ready"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "ready",
		Pathways: len(s.deps.Store.ListIDs()),
	})
}
