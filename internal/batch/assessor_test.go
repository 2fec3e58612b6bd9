package batch

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/wateruse/internal/api"
	"github.com/tejusbharadwaj/wateruse/internal/completeness"
	"github.com/tejusbharadwaj/wateruse/internal/models"
	"github.com/tejusbharadwaj/wateruse/internal/report"
	"github.com/tejusbharadwaj/wateruse/internal/statistics"
)

type fakeModes struct {
	mu        sync.Mutex
	refreshed []models.MonitoredPoint
}

func (f *fakeModes) Get(_ context.Context, point models.MonitoredPoint) (models.ReportingMode, error) {
	switch point {
	case "DOWN-M1":
		return models.ReportingMode{}, api.ErrTransient
	case "SPARSE-M1":
		return models.ReportingMode{Point: point, Method: models.MethodNone}, nil
	}
	return models.ReportingMode{Point: point, ReadingsPerDay: 24, Interval: time.Hour, Method: models.MethodAnnual}, nil
}

func (f *fakeModes) Refresh(ctx context.Context, point models.MonitoredPoint) (models.ReportingMode, error) {
	f.mu.Lock()
	f.refreshed = append(f.refreshed, point)
	f.mu.Unlock()
	return f.Get(ctx, point)
}

// fakeSeries serves hourly readings for the last three days before "now".
type fakeSeries struct{ end time.Time }

func (f fakeSeries) Combined(_ context.Context, point models.MonitoredPoint, from, to time.Time) (models.CombinedSeries, []models.MeasurementRange, error) {
	switch point {
	case "DOWN-M1":
		return models.CombinedSeries{Point: point}, nil, api.ErrTransient
	case "BROKEN-M1":
		return models.CombinedSeries{Point: point}, nil, api.ErrMalformed
	}

	var rs []models.Reading
	for t := f.end.AddDate(0, 0, -3); t.Before(f.end); t = t.Add(time.Hour) {
		rs = append(rs, models.Reading{Time: t, Value: 2})
	}
	s := models.NewSeries(point, models.Volume, rs)
	c := models.CombinedSeries{Point: point, Readings: models.Series{Readings: s.Readings}.Between(from, to)}
	if len(c.Readings) > 0 {
		c.Segments = []models.Segment{{Type: models.Volume, Start: c.Readings[0].Time, End: c.Readings[len(c.Readings)-1].Time, Count: len(c.Readings)}}
	}
	return c, []models.MeasurementRange{{Type: models.Volume, From: s.Start(), To: s.End()}}, nil
}

func (f fakeSeries) LastBefore(ctx context.Context, point models.MonitoredPoint, before time.Time, lookback time.Duration) (*models.Reading, error) {
	c, _, err := f.Combined(ctx, point, before.Add(-lookback), before)
	if err != nil {
		return nil, err
	}
	if last, ok := c.Last(); ok {
		return &last, nil
	}
	return nil, nil
}

type fakeConsents struct{}

func (fakeConsents) ForPoint(_ context.Context, point models.MonitoredPoint) (*models.ResolvedConsent, error) {
	if point.SiteID() == "NOCONSENT" {
		return nil, errors.New("consent database unavailable")
	}
	rate := 5.0
	return &models.ResolvedConsent{SiteID: point.SiteID(), Rate: &rate}, nil
}

type fakeLister struct{ points []models.MonitoredPoint }

func (f fakeLister) ListSites(context.Context) ([]models.MonitoredPoint, error) {
	return f.points, nil
}

var runEnd = time.Date(2021, 7, 5, 0, 0, 0, 0, time.UTC)

func newTestAssessor(t *testing.T, sink report.Sink, modes *fakeModes) *Assessor {
	t.Helper()
	series := fakeSeries{end: runEnd}
	return NewAssessor(
		NewRunner(RunnerConfig{Workers: 4}, testLogger()),
		Dependencies{
			Modes:    modes,
			Checker:  completeness.NewChecker(series, completeness.Config{}, testLogger()),
			Series:   series,
			Consents: fakeConsents{},
			Engine:   statistics.NewEngine(statistics.Config{}),
			Sink:     sink,
			Lister:   fakeLister{points: []models.MonitoredPoint{"A-M1", "B-M1"}},
		},
		7*24*time.Hour,
		filepath.Join(t.TempDir(), "absent.yaml"),
		testLogger(),
	)
}

func TestRunCompleteness(t *testing.T) {
	sink := report.NewMemory()
	a := newTestAssessor(t, sink, &fakeModes{})
	points := []models.MonitoredPoint{"A-M1", "DOWN-M1", "SPARSE-M1", "BROKEN-M1"}

	summary, results, err := a.RunCompleteness(context.Background(), points, runEnd.Add(9*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, OutcomeOK, summary.Outcomes[0].Outcome)
	assert.Equal(t, OutcomeFailed, summary.Outcomes[1].Outcome)
	assert.Equal(t, OutcomeOK, summary.Outcomes[2].Outcome)
	assert.Equal(t, OutcomeIncomplete, summary.Outcomes[3].Outcome)

	require.Len(t, results, 3, "failed points have no result")
	assert.Equal(t, models.MonitoredPoint("A-M1"), results[0].Point)
	assert.Equal(t, models.StatusMissing, results[0].Status)
	assert.Equal(t, 72, results[0].Observed)
	assert.Equal(t, 168, results[0].Expected)
	assert.Equal(t, runEnd, results[0].WindowEnd)
	assert.Equal(t, models.StatusCannotAssess, results[1].Status)
	assert.Equal(t, models.StatusIncomplete, results[2].Status)

	stored, run := sink.Completeness(true)
	assert.Equal(t, summary.RunID, run)
	assert.Len(t, stored, 1)
}

func TestRunStatistics(t *testing.T) {
	sink := report.NewMemory()
	a := newTestAssessor(t, sink, &fakeModes{})
	points := []models.MonitoredPoint{"A-M1", "NOCONSENT-M1", "DOWN-M1"}

	summary, reports, err := a.RunStatistics(context.Background(), points, runEnd.AddDate(0, -1, 0), runEnd, true)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Count(OutcomeOK))
	assert.Equal(t, 1, summary.Count(OutcomeFailed))
	require.Len(t, reports, 2)

	assert.NotNil(t, reports[0].Consent)
	assert.Equal(t, 432.0, *reports[0].References.DailyVolume)
	assert.NotEmpty(t, reports[0].Daily)
	assert.Nil(t, reports[1].Consent, "consent failures degrade to no references")
	assert.Equal(t, 72, reports[1].Summary.TotalReports)

	rep, ok := sink.Report("A-M1")
	require.True(t, ok)
	assert.Len(t, rep.Monthly, 1)
}

func TestRefreshModes(t *testing.T) {
	modes := &fakeModes{}
	a := newTestAssessor(t, nil, modes)

	summary := a.RefreshModes(context.Background(), []models.MonitoredPoint{"A-M1", "DOWN-M1"})
	assert.Equal(t, 1, summary.Count(OutcomeOK))
	assert.Equal(t, 1, summary.Count(OutcomeFailed))
	assert.ElementsMatch(t, []models.MonitoredPoint{"A-M1", "DOWN-M1"}, modes.refreshed)
}

func TestPointsFallsBackToLister(t *testing.T) {
	a := newTestAssessor(t, nil, &fakeModes{})
	points, err := a.Points(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.MonitoredPoint{"A-M1", "B-M1"}, points)

	a.pointsFile = writePoints(t, "points: [X-M1]")
	points, err = a.Points(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.MonitoredPoint{"X-M1"}, points)
}

func TestRunCompletenessSinkFailure(t *testing.T) {
	boom := errors.New("sink down")
	a := newTestAssessor(t, report.Multi{failing{boom}}, &fakeModes{})

	_, _, err := a.RunCompleteness(context.Background(), []models.MonitoredPoint{"A-M1"}, runEnd)
	assert.ErrorIs(t, err, boom)
}

type failing struct{ err error }

func (f failing) WriteCompleteness(context.Context, string, []models.CompletenessResult) error {
	return f.err
}

func (f failing) WriteReports(context.Context, string, []models.PointReport) error { return f.err }
