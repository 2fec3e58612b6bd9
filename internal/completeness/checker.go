// Package completeness flags monitored points whose recent telemetry falls short
// of their normal reporting cadence.
package completeness

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/wateruse/internal/api"
	"github.com/tejusbharadwaj/wateruse/internal/models"
)

const (
	DefaultLookback        = 365 * 24 * time.Hour
	DefaultMissingFraction = 1.0
)

// Source is the read side of the reading store used by the checker.
type Source interface {
	Combined(ctx context.Context, point models.MonitoredPoint, from, to time.Time) (models.CombinedSeries, []models.MeasurementRange, error)
	LastBefore(ctx context.Context, point models.MonitoredPoint, before time.Time, lookback time.Duration) (*models.Reading, error)
}

type Config struct {
	// Lookback bounds the search for the last reading before an empty window.
	Lookback time.Duration
	// MissingFraction of the expected count below which a window is missing.
	MissingFraction float64
}

type Checker struct {
	source Source
	cfg    Config
	logger logrus.FieldLogger
}

func NewChecker(source Source, cfg Config, logger logrus.FieldLogger) *Checker {
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.MissingFraction <= 0 || cfg.MissingFraction > 1 {
		cfg.MissingFraction = DefaultMissingFraction
	}
	return &Checker{source: source, cfg: cfg, logger: logger}
}

// Window returns the assessment window of length d ending at the start of end's day.
func Window(end time.Time, d time.Duration) (time.Time, time.Time) {
	y, m, day := end.Date()
	to := time.Date(y, m, day, 0, 0, 0, 0, end.Location())
	return to.Add(-d), to
}

// Check compares the readings observed in [start, end) with the count the mode
// predicts. A nil or unreliable mode yields CannotAssess without fetching data.
//
// Only transient telemetry failures are returned as errors. An unparseable
// payload is reported as an Incomplete result.
func (c *Checker) Check(
	ctx context.Context,
	point models.MonitoredPoint,
	start, end time.Time,
	mode *models.ReportingMode,
) (models.CompletenessResult, error) {
	result := models.CompletenessResult{
		Point:       point,
		WindowStart: start,
		WindowEnd:   end,
	}

	if mode == nil || !mode.Reliable() {
		result.Status = models.StatusCannotAssess
		result.Detail = "no reliable reporting mode"
		return result, nil
	}
	m := *mode
	result.Mode = &m

	combined, ranges, err := c.source.Combined(ctx, point, start, end)
	if err != nil {
		return c.failed(result, err)
	}

	result.Expected = int(end.Sub(start) / mode.Interval)
	result.Observed = len(combined.Between(start, end))
	result.PercentComplete = percent(result.Observed, result.Expected)
	result.Missing = float64(result.Observed) < float64(result.Expected)*c.cfg.MissingFraction

	if result.Observed > 0 {
		if result.Missing {
			result.Status = models.StatusMissing
		} else {
			result.Status = models.StatusComplete
		}
		return result, nil
	}

	last, err := c.source.LastBefore(ctx, point, start, c.cfg.Lookback)
	if err != nil {
		return c.failed(result, err)
	}

	switch {
	case last != nil:
		t := last.Time
		result.LastSeen = &t
		result.Status = models.StatusNoData
	case lastListed(ranges, start) != nil:
		result.LastSeen = lastListed(ranges, start)
		result.Status = models.StatusNoData
		result.Detail = "last reading is older than the lookback period"
	default:
		result.Status = models.StatusNeverReported
	}

	return result, nil
}

func (c *Checker) failed(result models.CompletenessResult, err error) (models.CompletenessResult, error) {
	if errors.Is(err, api.ErrMalformed) {
		c.logger.WithFields(logrus.Fields{
			"point":        result.Point,
			"window_start": result.WindowStart,
			"window_end":   result.WindowEnd,
		}).Warnf("Assessment incomplete: %v", err)
		result.Status = models.StatusIncomplete
		result.Detail = err.Error()
		return result, nil
	}
	return result, fmt.Errorf("check %s: %w", result.Point, err)
}

// lastListed returns the latest measurement end before start, if any.
func lastListed(ranges []models.MeasurementRange, start time.Time) *time.Time {
	var latest *time.Time
	for _, r := range ranges {
		if r.To.IsZero() || !r.To.Before(start) {
			continue
		}
		if latest == nil || r.To.After(*latest) {
			t := r.To
			latest = &t
		}
	}
	return latest
}

// percent is observed/expected as a percentage rounded to one decimal place.
func percent(observed, expected int) float64 {
	if expected == 0 {
		return 100
	}
	return math.Round(float64(observed)/float64(expected)*1000) / 10
}
