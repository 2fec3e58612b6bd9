// Package httpapi serves the latest assessment results, health and Prometheus
// metrics over HTTP, and lets operators trigger a run by hand.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/wateruse/internal/batch"
	"github.com/tejusbharadwaj/wateruse/internal/models"
	"github.com/tejusbharadwaj/wateruse/internal/scheduler"
)

// Results is the store of the latest run results.
type Results interface {
	Completeness(missingOnly bool) ([]models.CompletenessResult, string)
	PointCompleteness(point models.MonitoredPoint) (models.CompletenessResult, bool)
	Report(point models.MonitoredPoint) (models.PointReport, bool)
	Summaries() ([]models.PointSummary, string)
}

type Config struct {
	Host string
	Port int
	// Mode is the gin mode: debug, release or test.
	Mode string
}

type Server struct {
	cfg      Config
	results  Results
	jobs     scheduler.Jobs
	gatherer prometheus.Gatherer
	logger   logrus.FieldLogger
	engine   *gin.Engine
	http     *http.Server
	now      func() time.Time
}

// NewServer builds the router. jobs may be nil, which disables the run
// endpoints.
func NewServer(cfg Config, results Results, jobs scheduler.Jobs, gatherer prometheus.Gatherer, logger logrus.FieldLogger) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		cfg:      cfg,
		results:  results,
		jobs:     jobs,
		gatherer: gatherer,
		logger:   logger,
		engine:   gin.New(),
		now:      time.Now,
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.getHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")
	api.GET("/completeness", s.getCompleteness)
	api.GET("/reports", s.getReport)
	api.GET("/summaries", s.getSummaries)
	api.POST("/runs/:job", s.postRun)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.WithField("addr", addr).Info("Starting HTTP server")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("HTTP request served")
	}
}

func (s *Server) getHealth(c *gin.Context) {
	_, runID := s.results.Completeness(false)
	c.JSON(http.StatusOK, gin.H{
		"status":                "ok",
		"last_completeness_run": runID,
	})
}

// getCompleteness lists the latest completeness results. ?point= selects one
// point; ?missing=true keeps only points flagged missing.
func (s *Server) getCompleteness(c *gin.Context) {
	if point := c.Query("point"); point != "" {
		result, ok := s.results.PointCompleteness(models.MonitoredPoint(point))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no completeness result for %s", point)})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	missingOnly, err := boolQuery(c, "missing")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, runID := s.results.Completeness(missingOnly)
	c.JSON(http.StatusOK, gin.H{
		"run_id":  runID,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) getReport(c *gin.Context) {
	point := c.Query("point")
	if point == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing point"})
		return
	}
	rep, ok := s.results.Report(models.MonitoredPoint(point))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no report for %s", point)})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) getSummaries(c *gin.Context) {
	summaries, runID := s.results.Summaries()
	c.JSON(http.StatusOK, gin.H{
		"run_id":    runID,
		"count":     len(summaries),
		"summaries": summaries,
	})
}

// postRun runs a job over the configured points and returns its summary.
// Statistics runs take ?from= and ?to= dates (2006-01-02); completeness runs
// take an optional ?end= date.
func (s *Server) postRun(c *gin.Context) {
	if s.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "runs are disabled"})
		return
	}

	ctx := c.Request.Context()
	job := c.Param("job")

	var run func(points []models.MonitoredPoint) (batch.RunSummary, error)
	switch job {
	case batch.JobCompleteness:
		end, err := dateQuery(c, "end", s.now())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		run = func(points []models.MonitoredPoint) (batch.RunSummary, error) {
			summary, _, err := s.jobs.RunCompleteness(ctx, points, end)
			return summary, err
		}
	case batch.JobStatistics:
		from, err := dateQuery(c, "from", time.Time{})
		if err == nil && from.IsZero() {
			err = errors.New("missing from")
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		to, err := dateQuery(c, "to", s.now())
		if err != nil || !from.Before(to) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be a date after from"})
			return
		}
		run = func(points []models.MonitoredPoint) (batch.RunSummary, error) {
			summary, _, err := s.jobs.RunStatistics(ctx, points, from, to, true)
			return summary, err
		}
	case batch.JobModeRefresh:
		run = func(points []models.MonitoredPoint) (batch.RunSummary, error) {
			return s.jobs.RefreshModes(ctx, points), nil
		}
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown job %q", job)})
		return
	}

	points, err := s.jobs.Points(ctx)
	if err != nil {
		s.logger.WithField("job", job).Errorf("Failed to load points: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	summary, err := run(points)
	if err != nil {
		// the run itself finished; only publishing its results failed
		c.JSON(http.StatusOK, gin.H{"summary": summary, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func boolQuery(c *gin.Context, name string) (bool, error) {
	v := c.Query(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", name, v)
	}
	return b, nil
}

func dateQuery(c *gin.Context, name string, def time.Time) (time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %q is not a date", name, v)
	}
	return t, nil
}
