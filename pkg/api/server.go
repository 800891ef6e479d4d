// Package api exposes the research pipeline over HTTP. Jobs are held
// in a volatile in-memory map; a restart loses them.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mkohler/newsroom/pkg/observability"
	"github.com/mkohler/newsroom/pkg/resilience"
	"github.com/mkohler/newsroom/pkg/workflow"
)

// Runner executes workflows. Satisfied by *workflow.Engine.
type Runner interface {
	Execute(ctx context.Context, topic, correlationID string) *workflow.Result
	ExecuteSequential(ctx context.Context, topic, correlationID string) *workflow.Result
}

// JobStatus is the lifecycle of one submitted research job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job tracks one research request from submission to completion.
type Job struct {
	ID            string           `json:"id"`
	Topic         string           `json:"topic"`
	Mode          string           `json:"mode"`
	Status        JobStatus        `json:"status"`
	CorrelationID string           `json:"correlation_id"`
	CreatedAt     time.Time        `json:"created_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	Result        *workflow.Result `json:"result,omitempty"`
}

// Server is the HTTP layer over the workflow engine and the breaker
// registry's admin surface.
type Server struct {
	runner   Runner
	breakers *resilience.BreakerRegistry
	logger   *observability.StructuredLogger
	echo     *echo.Echo

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewServer wires the handlers onto a fresh echo instance.
func NewServer(runner Runner, breakers *resilience.BreakerRegistry) *Server {
	s := &Server{
		runner:   runner,
		breakers: breakers,
		logger:   observability.NewStructuredLogger("api"),
		jobs:     make(map[string]*Job),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/health", s.Health)
	e.POST("/v1/research", s.SubmitResearch)
	e.GET("/v1/research/:id", s.GetResearch)
	e.GET("/v1/breakers", s.ListBreakers)
	e.POST("/v1/breakers/:name/reset", s.ResetBreaker)

	s.echo = e
	return s
}

// Start blocks serving HTTP on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ResearchRequest is the body for POST /v1/research.
type ResearchRequest struct {
	Topic         string `json:"topic"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Mode          string `json:"mode,omitempty"`
}

// Health reports liveness.
// GET /health
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// SubmitResearch starts a research job and returns its id immediately.
// POST /v1/research
func (s *Server) SubmitResearch(c echo.Context) error {
	var req ResearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if strings.TrimSpace(req.Topic) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "topic is required"})
	}

	mode := req.Mode
	switch mode {
	case "":
		mode = "iterative"
	case "iterative", "sequential":
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "mode must be iterative or sequential"})
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	job := &Job{
		ID:            uuid.NewString(),
		Topic:         req.Topic,
		Mode:          mode,
		Status:        JobRunning,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	// The request context dies with the response; the job keeps
	// running on its own.
	go s.runJob(context.Background(), job)

	return c.JSON(http.StatusAccepted, map[string]string{
		"id":             job.ID,
		"correlation_id": job.CorrelationID,
	})
}

func (s *Server) runJob(ctx context.Context, job *Job) {
	var result *workflow.Result
	if job.Mode == "sequential" {
		result = s.runner.ExecuteSequential(ctx, job.Topic, job.CorrelationID)
	} else {
		result = s.runner.Execute(ctx, job.Topic, job.CorrelationID)
	}

	now := time.Now().UTC()
	s.mu.Lock()
	job.Result = result
	job.CompletedAt = &now
	if result.Status == workflow.StageFailed {
		job.Status = JobFailed
	} else {
		job.Status = JobCompleted
	}
	status := job.Status
	s.mu.Unlock()

	s.logger.Info(ctx, "research job finished", map[string]interface{}{
		"job_id": job.ID,
		"topic":  job.Topic,
		"status": string(status),
	})
}

// GetResearch returns a job's status, progress, and result once done.
// GET /v1/research/:id
func (s *Server) GetResearch(c echo.Context) error {
	id := c.Param("id")

	s.mu.RLock()
	job, exists := s.jobs[id]
	var snapshot Job
	if exists {
		snapshot = *job
	}
	s.mu.RUnlock()

	if !exists {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	resp := map[string]interface{}{
		"id":             snapshot.ID,
		"topic":          snapshot.Topic,
		"mode":           snapshot.Mode,
		"status":         snapshot.Status,
		"correlation_id": snapshot.CorrelationID,
		"created_at":     snapshot.CreatedAt,
		"progress":       jobProgress(&snapshot),
	}
	if snapshot.CompletedAt != nil {
		resp["completed_at"] = snapshot.CompletedAt
	}
	if snapshot.Result != nil {
		resp["result"] = snapshot.Result
	}
	return c.JSON(http.StatusOK, resp)
}

// jobProgress maps the workflow stage reached onto a coarse fraction.
func jobProgress(job *Job) float64 {
	if job.Result == nil {
		return 0
	}
	r := job.Result
	switch {
	case r.Status == workflow.StageCompleted:
		return 1.0
	case r.Review != nil:
		return 0.9
	case r.Report != nil:
		return 0.8
	case r.Synthesis != nil:
		return 0.6
	case r.FactCheck != nil:
		return 0.4
	case r.Research != nil:
		return 0.2
	default:
		return 0
	}
}

// ListBreakers returns every breaker's state and stats.
// GET /v1/breakers
func (s *Server) ListBreakers(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"breakers": s.breakers.States(),
	})
}

// ResetBreaker forces a breaker closed.
// POST /v1/breakers/:name/reset
func (s *Server) ResetBreaker(c echo.Context) error {
	name := c.Param("name")
	if !s.breakers.Reset(name) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": fmt.Sprintf("breaker %s not found", name)})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}
