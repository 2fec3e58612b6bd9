// Package report delivers assessment results to their consumers: an in-memory
// view served over HTTP, InfluxDB for dashboards and Kafka for missing-data
// alerts.
package report

import (
	"context"
	"errors"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// Sink consumes the results of one batch run.
type Sink interface {
	WriteCompleteness(ctx context.Context, runID string, results []models.CompletenessResult) error
	WriteReports(ctx context.Context, runID string, reports []models.PointReport) error
}

// Multi fans results out to every sink. All sinks are attempted; their errors
// are joined.
type Multi []Sink

func (m Multi) WriteCompleteness(ctx context.Context, runID string, results []models.CompletenessResult) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteCompleteness(ctx, runID, results); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) WriteReports(ctx context.Context, runID string, reports []models.PointReport) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteReports(ctx, runID, reports); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
