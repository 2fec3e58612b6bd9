package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS reporting_modes (
		point            TEXT PRIMARY KEY,
		readings_per_day INTEGER NOT NULL,
		interval_ns      INTEGER NOT NULL,
		mode_frequency   REAL NOT NULL,
		method           TEXT NOT NULL,
		computed_at      INTEGER NOT NULL
	);
`

// SQLiteRepo implements ModeRepository on a local SQLite file.
type SQLiteRepo struct {
	db *sql.DB
}

// NewSQLiteRepo opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a throwaway table.
func NewSQLiteRepo(path string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create reporting_modes: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func (s *SQLiteRepo) GetMode(ctx context.Context, point models.MonitoredPoint) (*models.ReportingMode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT point, readings_per_day, interval_ns, mode_frequency, method, computed_at
		FROM reporting_modes
		WHERE point = ?
	`, string(point))

	r, err := scanSQLiteMode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mode for %s: %w", point, err)
	}

	mode := r.toModel()
	return &mode, nil
}

func (s *SQLiteRepo) SaveMode(ctx context.Context, mode models.ReportingMode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reporting_modes (point, readings_per_day, interval_ns, mode_frequency, method, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (point) DO UPDATE SET
			readings_per_day = excluded.readings_per_day,
			interval_ns = excluded.interval_ns,
			mode_frequency = excluded.mode_frequency,
			method = excluded.method,
			computed_at = excluded.computed_at
	`,
		string(mode.Point),
		mode.ReadingsPerDay,
		int64(mode.Interval),
		mode.ModeFrequency,
		string(mode.Method),
		mode.ComputedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save mode for %s: %w", mode.Point, err)
	}
	return nil
}

func (s *SQLiteRepo) ListModes(ctx context.Context) ([]models.ReportingMode, error) {
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
		r, err := scanSQLiteMode(rows)
		if err != nil {
			return nil, err
		}
		modes = append(modes, r.toModel())
	}
	return modes, rows.Err()
}

func (s *SQLiteRepo) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// computed_at is stored as unix nanoseconds; SQLite has no native timestamp type.
func scanSQLiteMode(sc scanner) (modeRow, error) {
	var r modeRow
	var computedAt int64
	if err := sc.Scan(&r.point, &r.readingsPerDay, &r.intervalNanos, &r.modeFrequency, &r.method, &computedAt); err != nil {
		return r, err
	}
	r.computedAt = time.Unix(0, computedAt)
	return r, nil
}

// Compile-time interface implementation check
var _ ModeRepository = (*SQLiteRepo)(nil)
