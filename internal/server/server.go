// Package server exposes the workflow over HTTP: GitHub and GitLab issue
// webhooks trigger check runs, and /health reports liveness.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/semaphore"

	"github.com/steveyegge/dupsweep/internal/types"
	"github.com/steveyegge/dupsweep/internal/workflow"
)

// RunFunc executes one workflow invocation
type RunFunc func(ctx context.Context, inv workflow.Invocation) *types.WorkflowResult

// Config configures the HTTP surface
type Config struct {
	// Repository is the owner/name every run targets
	Repository string

	// Profile is passed to every run
	Profile string

	// GitHubSecret validates X-Hub-Signature-256; empty skips validation
	GitHubSecret string

	// GitLabToken must match X-Gitlab-Token; empty skips validation
	GitLabToken string

	// MaxConcurrentRuns caps in-flight runs; extra requests get 429
	MaxConcurrentRuns int64

	// Tracing enables the otelgin middleware
	Tracing     bool
	ServiceName string

	// Release switches gin to release mode
	Release bool

	// Async acknowledges accepted deliveries with 202 and runs them in the
	// background. GitHub abandons deliveries that take longer than 10s.
	Async bool
}

// Server routes webhook requests to the workflow
type Server struct {
	cfg    Config
	run    RunFunc
	sem    *semaphore.Weighted
	logger zerolog.Logger
	engine *gin.Engine

	// background runs started in async mode
	runs sync.WaitGroup
}

// New creates a server
func New(cfg Config, run RunFunc, logger zerolog.Logger) *Server {
	if cfg.MaxConcurrentRuns < 1 {
		cfg.MaxConcurrentRuns = 1
	}
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		run:    run,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrentRuns),
		logger: logger.With().Str("component", "server").Logger(),
	}

	router := gin.New()
	// OTel span first so recovery and logging see the trace
	if cfg.Tracing {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	hooks := router.Group("/webhooks")
	{
		hooks.POST("/github", s.handleGitHub)
		hooks.POST("/gitlab", s.handleGitLab)
	}

	s.engine = router
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("waiting for background runs")
	s.Wait()
	return <-errCh
}

// Wait blocks until every background run has finished
func (s *Server) Wait() {
	s.runs.Wait()
}

// trigger runs inv unless the concurrency cap is reached
func (s *Server) trigger(c *gin.Context, inv workflow.Invocation) {
	if !s.sem.TryAcquire(1) {
		s.logger.Warn().Int("issue", inv.Issue).Msg("rejecting webhook, too many concurrent runs")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many concurrent runs"})
		return
	}

	if s.cfg.Async {
		// the run outlives the request; the workflow's own timeout bounds it
		ctx := context.WithoutCancel(c.Request.Context())
		s.runs.Add(1)
		go func() {
			defer s.runs.Done()
			defer s.sem.Release(1)
			s.logResult(inv, s.run(ctx, inv))
		}()
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "repository": inv.Repository, "issue": inv.Issue})
		return
	}

	defer s.sem.Release(1)
	result := s.run(c.Request.Context(), inv)
	status := http.StatusOK
	if result == nil || !result.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}

func (s *Server) logResult(inv workflow.Invocation, result *types.WorkflowResult) {
	switch {
	case result == nil:
		s.logger.Error().Int("issue", inv.Issue).Msg("background run returned no result")
	case !result.Success:
		s.logger.Error().Int("issue", inv.Issue).Str("error", result.Error).Msg("background run failed")
	default:
		s.logger.Info().Int("issue", inv.Issue).Int("duplicates", result.DuplicatesProcessed).Msg("background run finished")
	}
}

func (s *Server) invocation(issue int) workflow.Invocation {
	return workflow.Invocation{
		Repository: s.cfg.Repository,
		Profile:    s.cfg.Profile,
		Webhook:    true,
		Issue:      issue,
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
