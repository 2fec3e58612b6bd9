//go:generate go run github.com/golang/mock/mockgen -destination=./mocks/repository.go -package=mocks . ModeRepository,ConsentRepository

// Package database persists the reporting-mode lookup table and reads consent
// conditions.
//
// Two backends are provided:
//   - SQLiteRepo: a file-backed mode table, the default for single-host runs
//   - PostgresRepo: a shared mode table plus the consent conditions table
//
// Example usage:
//
//	repo, err := NewSQLiteRepo("wateruse.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
//	mode, err := repo.GetMode(ctx, "J36/0016-M1")
package database

import (
	"context"
	"time"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// ModeRepository stores one reporting mode per point. Saving a mode for a point
// replaces the previous one.
type ModeRepository interface {
	// GetMode returns the stored mode, or nil when the point has none.
	GetMode(ctx context.Context, point models.MonitoredPoint) (*models.ReportingMode, error)

	// SaveMode inserts or overwrites the point's mode.
	SaveMode(ctx context.Context, mode models.ReportingMode) error

	// ListModes returns every stored mode ordered by point.
	ListModes(ctx context.Context) ([]models.ReportingMode, error)

	// Close releases any resources held by the repository.
	Close() error
}

// ConsentRepository reads consent conditions for a site.
type ConsentRepository interface {
	FetchConsents(ctx context.Context, siteID string) ([]models.ConsentCondition, error)
}

// modeRow is the column layout shared by both backends.
type modeRow struct {
	point          string
	readingsPerDay int
	intervalNanos  int64
	modeFrequency  float64
	method         string
	computedAt     time.Time
}

func (r modeRow) toModel() models.ReportingMode {
	return models.ReportingMode{
		Point:          models.MonitoredPoint(r.point),
		ReadingsPerDay: r.readingsPerDay,
		Interval:       time.Duration(r.intervalNanos),
		ModeFrequency:  r.modeFrequency,
		Method:         models.ModeMethod(r.method),
		ComputedAt:     r.computedAt.UTC(),
	}
}
