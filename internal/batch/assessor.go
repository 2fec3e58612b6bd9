package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/wateruse/internal/completeness"
	"github.com/tejusbharadwaj/wateruse/internal/models"
	"github.com/tejusbharadwaj/wateruse/internal/report"
	"github.com/tejusbharadwaj/wateruse/internal/statistics"
)

const (
	JobCompleteness = "completeness"
	JobStatistics   = "statistics"
	JobModeRefresh  = "mode_refresh"
)

type ModeProvider interface {
	Get(ctx context.Context, point models.MonitoredPoint) (models.ReportingMode, error)
	Refresh(ctx context.Context, point models.MonitoredPoint) (models.ReportingMode, error)
}

type CompletenessChecker interface {
	Check(ctx context.Context, point models.MonitoredPoint, start, end time.Time, mode *models.ReportingMode) (models.CompletenessResult, error)
}

type SeriesSource interface {
	Combined(ctx context.Context, point models.MonitoredPoint, from, to time.Time) (models.CombinedSeries, []models.MeasurementRange, error)
}

type ConsentSource interface {
	ForPoint(ctx context.Context, point models.MonitoredPoint) (*models.ResolvedConsent, error)
}

type PointLister interface {
	ListSites(ctx context.Context) ([]models.MonitoredPoint, error)
}

// Dependencies are the components an Assessor drives.
type Dependencies struct {
	Modes    ModeProvider
	Checker  CompletenessChecker
	Series   SeriesSource
	Consents ConsentSource
	Engine   *statistics.Engine
	Sink     report.Sink
	Lister   PointLister
}

// Assessor runs the completeness, statistics and mode-refresh jobs.
type Assessor struct {
	runner     *Runner
	deps       Dependencies
	window     time.Duration
	pointsFile string
	logger     logrus.FieldLogger
}

func NewAssessor(runner *Runner, deps Dependencies, window time.Duration, pointsFile string, logger logrus.FieldLogger) *Assessor {
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	return &Assessor{
		runner:     runner,
		deps:       deps,
		window:     window,
		pointsFile: pointsFile,
		logger:     logger,
	}
}

// Points returns the configured point list, or every site the telemetry
// service holds when no points file exists.
func (a *Assessor) Points(ctx context.Context) ([]models.MonitoredPoint, error) {
	if a.pointsFile != "" {
		points, err := LoadPoints(a.pointsFile)
		if err == nil {
			return points, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		a.logger.WithField("points_file", a.pointsFile).Info("Points file not found, assessing every listed site")
	}

	if a.deps.Lister == nil {
		return nil, errors.New("no points file and no site lister configured")
	}
	return a.deps.Lister.ListSites(ctx)
}

// CheckPoint assesses one point's completeness over the window ending at the
// start of end's day.
func (a *Assessor) CheckPoint(ctx context.Context, point models.MonitoredPoint, end time.Time) (models.CompletenessResult, error) {
	start, stop := completeness.Window(end, a.window)

	mode, err := a.deps.Modes.Get(ctx, point)
	if err != nil {
		return models.CompletenessResult{Point: point, WindowStart: start, WindowEnd: stop}, err
	}
	return a.deps.Checker.Check(ctx, point, start, stop, &mode)
}

// ReportPoint computes every statistic for one point over [from, to).
func (a *Assessor) ReportPoint(ctx context.Context, point models.MonitoredPoint, from, to time.Time, withDaily bool) (models.PointReport, error) {
	combined, ranges, err := a.deps.Series.Combined(ctx, point, from, to)
	if err != nil {
		return models.PointReport{Point: point}, err
	}

	var consent *models.ResolvedConsent
	if a.deps.Consents != nil {
		consent, err = a.deps.Consents.ForPoint(ctx, point)
		if err != nil {
			// reference values are optional, the statistics still stand
			a.logger.WithField("point", point).Warnf("Consent lookup failed, omitting references: %v", err)
			consent = nil
		}
	}

	return a.deps.Engine.Report(combined, ranges, consent, withDaily), nil
}

// RunCompleteness checks every point and hands the results to the sink.
func (a *Assessor) RunCompleteness(ctx context.Context, points []models.MonitoredPoint, end time.Time) (RunSummary, []models.CompletenessResult, error) {
	var (
		mu      sync.Mutex
		results = make(map[models.MonitoredPoint]models.CompletenessResult, len(points))
	)

	summary := a.runner.Run(ctx, JobCompleteness, points, func(ctx context.Context, point models.MonitoredPoint) error {
		result, err := a.CheckPoint(ctx, point, end)
		if err != nil {
			return err
		}

		mu.Lock()
		results[point] = result
		mu.Unlock()

		if result.Status == models.StatusIncomplete {
			return fmt.Errorf("%w: %s", ErrIncomplete, result.Detail)
		}
		return nil
	})

	ordered := make([]models.CompletenessResult, 0, len(results))
	for _, p := range points {
		if r, ok := results[p]; ok {
			ordered = append(ordered, r)
		}
	}

	return summary, ordered, a.write(ctx, summary, func(ctx context.Context) error {
		return a.deps.Sink.WriteCompleteness(ctx, summary.RunID, ordered)
	})
}

// RunStatistics reports every point over [from, to) and hands the reports to
// the sink.
func (a *Assessor) RunStatistics(ctx context.Context, points []models.MonitoredPoint, from, to time.Time, withDaily bool) (RunSummary, []models.PointReport, error) {
	var (
		mu      sync.Mutex
		reports = make(map[models.MonitoredPoint]models.PointReport, len(points))
	)

	summary := a.runner.Run(ctx, JobStatistics, points, func(ctx context.Context, point models.MonitoredPoint) error {
		rep, err := a.ReportPoint(ctx, point, from, to, withDaily)
		if err != nil {
			return err
		}
		mu.Lock()
		reports[point] = rep
		mu.Unlock()
		return nil
	})

	ordered := make([]models.PointReport, 0, len(reports))
	for _, p := range points {
		if r, ok := reports[p]; ok {
			ordered = append(ordered, r)
		}
	}

	return summary, ordered, a.write(ctx, summary, func(ctx context.Context) error {
		return a.deps.Sink.WriteReports(ctx, summary.RunID, ordered)
	})
}

// RefreshModes recomputes and stores the reporting mode of every point.
func (a *Assessor) RefreshModes(ctx context.Context, points []models.MonitoredPoint) RunSummary {
	return a.runner.Run(ctx, JobModeRefresh, points, func(ctx context.Context, point models.MonitoredPoint) error {
		_, err := a.deps.Modes.Refresh(ctx, point)
		return err
	})
}

func (a *Assessor) write(ctx context.Context, summary RunSummary, fn func(ctx context.Context) error) error {
	if a.deps.Sink == nil {
		return nil
	}
	if err := fn(ctx); err != nil {
		a.logger.WithFields(logrus.Fields{
			"run_id": summary.RunID,
			"job":    summary.Job,
		}).Errorf("Failed to write run results: %v", err)
		return fmt.Errorf("write %s results: %w", summary.Job, err)
	}
	return nil
}
