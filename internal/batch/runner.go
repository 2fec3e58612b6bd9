// Package batch runs per-point assessments over a list of monitored points on a
// bounded worker pool.
//
// Each point is an isolated unit of work with its own timeout. A failure on one
// point is recorded and the run carries on. When the overall run deadline
// passes, points that have not started are reported as skipped.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/wateruse/internal/api"
	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// Outcome is how a point's unit of work ended.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeFailed     Outcome = "failed"
	OutcomeIncomplete Outcome = "incomplete"
	OutcomeSkipped    Outcome = "skipped"
)

// ErrIncomplete marks a unit of work that finished without a full assessment.
var ErrIncomplete = errors.New("assessment incomplete")

// PointOutcome records one point's result within a run.
type PointOutcome struct {
	Point    models.MonitoredPoint `json:"point"`
	Outcome  Outcome               `json:"outcome"`
	Error    string                `json:"error,omitempty"`
	Duration time.Duration         `json:"duration"`
}

// RunSummary describes a finished run. Outcomes are in input order.
type RunSummary struct {
	RunID    string         `json:"run_id"`
	Job      string         `json:"job"`
	Started  time.Time      `json:"started"`
	Finished time.Time      `json:"finished"`
	Outcomes []PointOutcome `json:"outcomes"`
}

// Count returns the number of points that ended with outcome.
func (s RunSummary) Count(outcome Outcome) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Outcome == outcome {
			n++
		}
	}
	return n
}

// Task is the unit of work run for each point.
type Task func(ctx context.Context, point models.MonitoredPoint) error

type RunnerConfig struct {
	Workers      int
	PointTimeout time.Duration
	// RunDeadline bounds the whole run. Zero means no deadline.
	RunDeadline time.Duration
}

type Runner struct {
	cfg    RunnerConfig
	logger logrus.FieldLogger
}

func NewRunner(cfg RunnerConfig, logger logrus.FieldLogger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run executes task for every point and waits for all workers to finish.
func (r *Runner) Run(ctx context.Context, job string, points []models.MonitoredPoint, task Task) RunSummary {
	summary := RunSummary{
		RunID:    uuid.NewString(),
		Job:      job,
		Started:  time.Now(),
		Outcomes: make([]PointOutcome, len(points)),
	}
	logger := r.logger.WithFields(logrus.Fields{
		"run_id": summary.RunID,
		"job":    job,
	})
	logger.WithField("points", len(points)).Info("Starting batch run")

	runCtx := ctx
	if r.cfg.RunDeadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.RunDeadline)
		defer cancel()
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(r.cfg.Workers)
	for w := 0; w < r.cfg.Workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				summary.Outcomes[i] = r.runPoint(runCtx, job, points[i], task, logger)
			}
		}()
	}

	for i := range points {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary.Finished = time.Now()
	runsTotal.WithLabelValues(job).Inc()
	lastRun.WithLabelValues(job).Set(float64(summary.Finished.Unix()))

	logger.WithFields(logrus.Fields{
		"ok":         summary.Count(OutcomeOK),
		"failed":     summary.Count(OutcomeFailed),
		"incomplete": summary.Count(OutcomeIncomplete),
		"skipped":    summary.Count(OutcomeSkipped),
		"duration":   summary.Finished.Sub(summary.Started).String(),
	}).Info("Batch run finished")

	return summary
}

func (r *Runner) runPoint(
	runCtx context.Context,
	job string,
	point models.MonitoredPoint,
	task Task,
	logger logrus.FieldLogger,
) (out PointOutcome) {
	out.Point = point
	defer func() {
		pointsTotal.WithLabelValues(job, string(out.Outcome)).Inc()
	}()

	// queued points are not started once the run is over
	if runCtx.Err() != nil {
		out.Outcome = OutcomeSkipped
		out.Error = runCtx.Err().Error()
		return out
	}

	ctx := runCtx
	if r.cfg.PointTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(runCtx, r.cfg.PointTimeout)
		defer cancel()
	}

	start := time.Now()
	err := safeRun(ctx, point, task)
	out.Duration = time.Since(start)
	pointDuration.WithLabelValues(job).Observe(out.Duration.Seconds())

	switch {
	case err == nil:
		out.Outcome = OutcomeOK
	case runCtx.Err() != nil:
		// cut short by the run deadline, not by a fault of its own
		out.Outcome = OutcomeSkipped
		out.Error = runCtx.Err().Error()
	case errors.Is(err, ErrIncomplete) || errors.Is(err, api.ErrMalformed):
		out.Outcome = OutcomeIncomplete
		out.Error = err.Error()
		logger.WithField("point", point).Warnf("Point assessment incomplete: %v", err)
	default:
		out.Outcome = OutcomeFailed
		out.Error = err.Error()
		logger.WithField("point", point).Errorf("Point assessment failed: %v", err)
	}
	return out
}

// safeRun turns a panicking task into a per-point failure.
func safeRun(ctx context.Context, point models.MonitoredPoint, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic processing %s: %v", point, p)
		}
	}()
	return task(ctx, point)
}
