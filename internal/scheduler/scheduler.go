// Package scheduler runs the periodic assessment jobs on cron schedules: the
// weekly completeness report, the reporting-mode refresh and, optionally, the
// statistics report.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/wateruse/internal/batch"
	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// Jobs are the batch jobs the scheduler triggers.
type Jobs interface {
	Points(ctx context.Context) ([]models.MonitoredPoint, error)
	RunCompleteness(ctx context.Context, points []models.MonitoredPoint, end time.Time) (batch.RunSummary, []models.CompletenessResult, error)
	RunStatistics(ctx context.Context, points []models.MonitoredPoint, from, to time.Time, withDaily bool) (batch.RunSummary, []models.PointReport, error)
	RefreshModes(ctx context.Context, points []models.MonitoredPoint) batch.RunSummary
}

// Config holds the cron specs; an empty spec disables that job.
type Config struct {
	CompletenessSpec string
	ModeRefreshSpec  string
	StatisticsSpec   string
	// StatisticsFrom is the start of the statistics period.
	StatisticsFrom time.Time
	Location       *time.Location
}

type Scheduler struct {
	ctx    context.Context
	jobs   Jobs
	cfg    Config
	logger *logrus.Logger
	cron   *cron.Cron
	now    func() time.Time
}

func NewScheduler(ctx context.Context, jobs Jobs, cfg Config, logger *logrus.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		ctx:    ctx,
		jobs:   jobs,
		cfg:    cfg,
		logger: logger,
		cron:   cron.New(cron.WithLocation(cfg.Location)),
		now:    time.Now,
	}
}

// Start registers the configured jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	specs := []struct {
		spec string
		fn   func()
	}{
		{s.cfg.CompletenessSpec, s.runCompleteness},
		{s.cfg.ModeRefreshSpec, s.refreshModes},
		{s.cfg.StatisticsSpec, s.runStatistics},
	}

	for _, j := range specs {
		if j.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(j.spec, j.fn); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop the scheduler and wait for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) points() ([]models.MonitoredPoint, bool) {
	points, err := s.jobs.Points(s.ctx)
	if err != nil {
		s.logger.Errorf("Failed to list points: %v", err)
		return nil, false
	}
	return points, true
}

// runCompleteness produces the weekly missing-data report for the week ending today.
func (s *Scheduler) runCompleteness() {
	points, ok := s.points()
	if !ok {
		return
	}

	summary, results, err := s.jobs.RunCompleteness(s.ctx, points, s.now().In(s.cfg.Location))
	if err != nil {
		s.logger.Errorf("Completeness run %s: %v", summary.RunID, err)
		return
	}

	missing := 0
	for _, r := range results {
		if r.Missing {
			missing++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"run_id":  summary.RunID,
		"points":  len(points),
		"missing": missing,
	}).Info("Weekly completeness report done")
}

func (s *Scheduler) refreshModes() {
	points, ok := s.points()
	if !ok {
		return
	}
	summary := s.jobs.RefreshModes(s.ctx, points)
	s.logger.WithFields(logrus.Fields{
		"run_id": summary.RunID,
		"failed": summary.Count(batch.OutcomeFailed),
	}).Info("Reporting modes refreshed")
}

func (s *Scheduler) runStatistics() {
	points, ok := s.points()
	if !ok {
		return
	}
	summary, _, err := s.jobs.RunStatistics(s.ctx, points, s.cfg.StatisticsFrom, s.now(), false)
	if err != nil {
		s.logger.Errorf("Statistics run %s: %v", summary.RunID, err)
	}
}
