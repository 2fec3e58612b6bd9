package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

func newTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := NewSQLiteRepo(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteGetModeAbsent(t *testing.T) {
	repo := newTestRepo(t)

	mode, err := repo.GetMode(context.Background(), "J36/0016-M1")
	require.NoError(t, err)
	assert.Nil(t, mode)
}

func TestSQLiteSaveAndOverwrite(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	computed := time.Date(2021, 6, 7, 0, 0, 0, 0, time.UTC)

	first := models.ReportingMode{
		Point:          "J36/0016-M1",
		ReadingsPerDay: 96,
		Interval:       15 * time.Minute,
		ModeFrequency:  0.92,
		Method:         models.MethodAnnual,
		ComputedAt:     computed,
	}
	require.NoError(t, repo.SaveMode(ctx, first))

	got, err := repo.GetMode(ctx, first.Point)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first, *got)

	second := first
	second.ReadingsPerDay = 24
	second.Interval = time.Hour
	second.Method = models.MethodQtr2
	second.ComputedAt = computed.Add(7 * 24 * time.Hour)
	require.NoError(t, repo.SaveMode(ctx, second))

	got, err = repo.GetMode(ctx, first.Point)
	require.NoError(t, err)
	assert.Equal(t, second, *got)

	all, err := repo.ListModes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteListModesOrdered(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2021, 6, 7, 0, 0, 0, 0, time.UTC)

	for _, p := range []models.MonitoredPoint{"L35/0001-M1", "B12/0002-M1", "J36/0016-M1"} {
		require.NoError(t, repo.SaveMode(ctx, models.ReportingMode{
			Point: p, ReadingsPerDay: 1, Interval: 24 * time.Hour, Method: models.MethodAnnual, ComputedAt: now,
		}))
	}

	modes, err := repo.ListModes(ctx)
	require.NoError(t, err)
	require.Len(t, modes, 3)
	assert.Equal(t, models.MonitoredPoint("B12/0002-M1"), modes[0].Point)
	assert.Equal(t, models.MonitoredPoint("L35/0001-M1"), modes[2].Point)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modes.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepo(path)
	require.NoError(t, err)
	mode := models.ReportingMode{
		Point: "P1", ReadingsPerDay: 0, Method: models.MethodNone,
		ComputedAt: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.SaveMode(ctx, mode))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepo(path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetMode(ctx, "P1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.MethodNone, got.Method)
	assert.False(t, got.Reliable())
}
