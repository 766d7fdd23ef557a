package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/version"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const readinessProbeTimeout = 5 * time.Second

// HealthCheck is a named dependency probe run by /health/ready.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
}

func (s *Server) handleLiveness(c echo.Context) error {
	return respond(c, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"uptime":  s.clock.Since(s.startTime).Seconds(),
	})
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleReadiness probes all dependencies in parallel and lists each result.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(s.healthChecks))
		healthy = true
	)
	var g errgroup.Group
	for _, hc := range s.healthChecks {
		g.Go(func() error {
			result := "ok"
			if err := hc.Check(ctx); err != nil {
				result = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			results[hc.Name] = result
			if result != "ok" {
				healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()

	if !healthy {
		return respond(c, http.StatusServiceUnavailable, readinessResponse{Status: "unhealthy", Checks: results})
	}
	return respond(c, http.StatusOK, readinessResponse{Status: "ready", Checks: results})
}

func (s *Server) handleVersion(c echo.Context) error {
	return respond(c, http.StatusOK, version.Get())
}
