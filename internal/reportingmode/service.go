package reportingmode

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// SeriesSource returns a point's combined series over [from, to).
type SeriesSource interface {
	Combined(ctx context.Context, point models.MonitoredPoint, from, to time.Time) (models.CombinedSeries, []models.MeasurementRange, error)
}

// Service computes reporting modes from the telemetry held for a point.
type Service struct {
	source    SeriesSource
	estimator Estimator
	logger    logrus.FieldLogger
}

func NewService(source SeriesSource, estimator Estimator, logger logrus.FieldLogger) *Service {
	return &Service{source: source, estimator: estimator, logger: logger}
}

// Compute estimates the point's mode from the year of combined readings before asOf.
func (s *Service) Compute(ctx context.Context, point models.MonitoredPoint, asOf time.Time) (models.ReportingMode, error) {
	from, to := s.estimator.PeriodStart(asOf), s.estimator.PeriodEnd(asOf)

	combined, _, err := s.source.Combined(ctx, point, from, to)
	if err != nil {
		return models.ReportingMode{Point: point, Method: models.MethodNone}, fmt.Errorf("compute mode for %s: %w", point, err)
	}

	mode := s.estimator.Estimate(point, combined.Readings, asOf)
	s.logger.WithFields(logrus.Fields{
		"point":            point,
		"readings":         len(combined.Readings),
		"readings_per_day": mode.ReadingsPerDay,
		"method":           mode.Method,
		"mode_frequency":   mode.ModeFrequency,
	}).Debug("Computed reporting mode")

	return mode, nil
}
