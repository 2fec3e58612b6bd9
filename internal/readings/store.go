// Package readings gives the analysis components normalised access to a point's
// raw readings held by the telemetry service.
package readings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/wateruse/internal/api"
	"github.com/tejusbharadwaj/wateruse/internal/combiner"
	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// Store reads series from the telemetry service. Missing points and measurement
// types are treated as empty data.
type Store struct {
	source api.TelemetrySource
	logger logrus.FieldLogger
}

func NewStore(source api.TelemetrySource, logger logrus.FieldLogger) *Store {
	return &Store{source: source, logger: logger}
}

// Series returns one measurement type's readings in [from, to).
func (s *Store) Series(
	ctx context.Context,
	point models.MonitoredPoint,
	mtype models.MeasurementType,
	from, to time.Time,
) (models.Series, error) {
	series, err := s.source.FetchReadings(ctx, point, mtype, from, to)
	if errors.Is(err, api.ErrNotFound) {
		return models.Series{Point: point, Type: mtype}, nil
	}
	if err != nil {
		return models.Series{Point: point, Type: mtype}, fmt.Errorf("fetch %s %s: %w", point, mtype, err)
	}
	return series, nil
}

// Ranges lists the water-use measurement types available for the point.
func (s *Store) Ranges(ctx context.Context, point models.MonitoredPoint) ([]models.MeasurementRange, error) {
	ranges, err := s.source.ListMeasurementTypes(ctx, point)
	if errors.Is(err, api.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list measurements for %s: %w", point, err)
	}
	return ranges, nil
}

// Combined fetches every measurement type whose availability overlaps [from, to)
// and stitches them into one combined series. The listed ranges are returned
// alongside so callers can reason about data outside the requested window.
func (s *Store) Combined(
	ctx context.Context,
	point models.MonitoredPoint,
	from, to time.Time,
) (models.CombinedSeries, []models.MeasurementRange, error) {
	ranges, err := s.Ranges(ctx, point)
	if err != nil {
		return models.CombinedSeries{Point: point}, nil, err
	}

	var series []models.Series
	for _, r := range ranges {
		// To is the last reading, so a range ending exactly at from still matters
		if r.To.Before(from) || !r.From.Before(to) {
			continue
		}

		ser, err := s.Series(ctx, point, r.Type, from, to)
		if err != nil {
			return models.CombinedSeries{Point: point}, ranges, err
		}
		s.logger.WithFields(logrus.Fields{
			"point":       point,
			"measurement": r.Type,
			"readings":    ser.Len(),
		}).Debug("Fetched measurement series")
		series = append(series, ser)
	}

	combined, err := combiner.Combine(point, series)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"point": point,
		}).Errorf("Combined series invariant violated: %v", err)
		return combined, ranges, err
	}

	return combined, ranges, nil
}

// LastBefore returns the latest reading of any measurement type in
// [before-lookback, before).
func (s *Store) LastBefore(
	ctx context.Context,
	point models.MonitoredPoint,
	before time.Time,
	lookback time.Duration,
) (*models.Reading, error) {
	combined, _, err := s.Combined(ctx, point, before.Add(-lookback), before)
	if err != nil {
		return nil, err
	}
	last, ok := combined.Last()
	if !ok {
		return nil, nil
	}
	return &last, nil
}
