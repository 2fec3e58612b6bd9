package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// PostgresRepo implements ModeRepository and ConsentRepository on Postgres.
//
// Tables:
//   - reporting_modes: one row per point, overwritten on recompute
//   - consent_conditions: a read-only copy of the consent summary, one row per
//     consent and site
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates and initializes a new PostgresRepo.
//
// The connection string should be in the format:
// "host=localhost port=5432 user=u password=p dbname=wateruse sslmode=disable"
//
// The function will:
//  1. Establish database connection
//  2. Verify connectivity
//  3. Initialize connection pool
func NewPostgresRepo(connStr string, maxConnections int) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if maxConnections > 0 {
		db.SetMaxOpenConns(maxConnections)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresRepo{db: db}, nil
}

// Migrate creates the reporting_modes table if it does not exist.
func (s *PostgresRepo) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reporting_modes (
			point            TEXT PRIMARY KEY,
			readings_per_day INTEGER NOT NULL,
			interval_ns      BIGINT NOT NULL,
			mode_frequency   DOUBLE PRECISION NOT NULL,
			method           TEXT NOT NULL,
			computed_at      TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create reporting_modes: %w", err)
	}
	return nil
}

func (s *PostgresRepo) GetMode(ctx context.Context, point models.MonitoredPoint) (*models.ReportingMode, error) {
	var r modeRow
	err := s.db.QueryRowContext(ctx, `
		SELECT point, readings_per_day, interval_ns, mode_frequency, method, computed_at
		FROM reporting_modes
		WHERE point = $1
	`, string(point)).Scan(&r.point, &r.readingsPerDay, &r.intervalNanos, &r.modeFrequency, &r.method, &r.computedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mode for %s: %w", point, err)
	}

	mode := r.toModel()
	return &mode, nil
}

func (s *PostgresRepo) SaveMode(ctx context.Context, mode models.ReportingMode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reporting_modes (point, readings_per_day, interval_ns, mode_frequency, method, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (point) DO UPDATE SET
			readings_per_day = EXCLUDED.readings_per_day,
			interval_ns = EXCLUDED.interval_ns,
			mode_frequency = EXCLUDED.mode_frequency,
			method = EXCLUDED.method,
			computed_at = EXCLUDED.computed_at
	`,
		string(mode.Point),
		mode.ReadingsPerDay,
		int64(mode.Interval),
		mode.ModeFrequency,
		string(mode.Method),
		mode.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save mode for %s: %w", mode.Point, err)
	}
	return nil
}

func (s *PostgresRepo) ListModes(ctx context.Context) ([]models.ReportingMode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT point, readings_per_day, interval_ns, mode_frequency, method, computed_at
		FROM reporting_modes
		ORDER BY point
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modes []models.ReportingMode
	for rows.Next() {
		var r modeRow
		if err := rows.Scan(&r.point, &r.readingsPerDay, &r.intervalNanos, &r.modeFrequency, &r.method, &r.computedAt); err != nil {
			return nil, err
		}
		modes = append(modes, r.toModel())
	}
	return modes, rows.Err()
}

// FetchConsents returns every consent condition recorded for the site, newest
// ToDate first. Limits the consent does not set come back as nil.
func (s *PostgresRepo) FetchConsents(ctx context.Context, siteID string) ([]models.ConsentCondition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_number, ext_site_id, consent_status, from_date, to_date,
		       consented_rate, consented_multi_day_volume, consented_multi_day_period
		FROM consent_conditions
		WHERE ext_site_id = $1
		ORDER BY to_date DESC, record_number
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query consents for %s: %w", siteID, err)
	}
	defer rows.Close()

	var consents []models.ConsentCondition
	for rows.Next() {
		var (
			c              models.ConsentCondition
			status         string
			from, to       sql.NullTime
			rate, volume   sql.NullFloat64
			multiDayPeriod sql.NullInt64
		)
		if err := rows.Scan(&c.ConsentID, &c.SiteID, &status, &from, &to, &rate, &volume, &multiDayPeriod); err != nil {
			return nil, err
		}

		c.Status = models.ConsentStatus(status)
		c.FromDate = from.Time
		c.ToDate = to.Time
		if rate.Valid {
			c.Rate = &rate.Float64
		}
		if volume.Valid {
			c.MultiDayVolume = &volume.Float64
		}
		if multiDayPeriod.Valid && multiDayPeriod.Int64 > 0 {
			period := int(multiDayPeriod.Int64)
			c.MultiDayPeriod = &period
		}
		consents = append(consents, c)
	}

	return consents, rows.Err()
}

// Close releases all database resources.
func (s *PostgresRepo) Close() error {
	return s.db.Close()
}

// Compile-time interface implementation check
var (
	_ ModeRepository    = (*PostgresRepo)(nil)
	_ ConsentRepository = (*PostgresRepo)(nil)
)

// NoConsents is the ConsentRepository used when no consent database is
// configured; every site resolves to no conditions.
type NoConsents struct{}

func (NoConsents) FetchConsents(context.Context, string) ([]models.ConsentCondition, error) {
	return nil, nil
}

var _ ConsentRepository = NoConsents{}
