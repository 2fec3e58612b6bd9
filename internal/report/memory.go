package report

import (
	"context"
	"sort"
	"sync"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// Memory keeps the latest result per point.
type Memory struct {
	mu              sync.RWMutex
	completeness    map[models.MonitoredPoint]models.CompletenessResult
	reports         map[models.MonitoredPoint]models.PointReport
	completenessRun string
	reportsRun      string
}

func NewMemory() *Memory {
	return &Memory{
		completeness: make(map[models.MonitoredPoint]models.CompletenessResult),
		reports:      make(map[models.MonitoredPoint]models.PointReport),
	}
}

func (m *Memory) WriteCompleteness(_ context.Context, runID string, results []models.CompletenessResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range results {
		m.completeness[r.Point] = r
	}
	m.completenessRun = runID
	return nil
}

func (m *Memory) WriteReports(_ context.Context, runID string, reports []models.PointReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range reports {
		m.reports[r.Point] = r
	}
	m.reportsRun = runID
	return nil
}

// Completeness returns the latest results ordered by point, and the run that
// last wrote them. missingOnly keeps only results flagged missing.
func (m *Memory) Completeness(missingOnly bool) ([]models.CompletenessResult, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.CompletenessResult, 0, len(m.completeness))
	for _, r := range m.completeness {
		if missingOnly && !r.Missing {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Point < out[j].Point })
	return out, m.completenessRun
}

// PointCompleteness returns the latest result for point.
func (m *Memory) PointCompleteness(point models.MonitoredPoint) (models.CompletenessResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.completeness[point]
	return r, ok
}

// Report returns the latest statistics report for point.
func (m *Memory) Report(point models.MonitoredPoint) (models.PointReport, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[point]
	return r, ok
}

// Summaries returns the latest summary of every reported point ordered by point.
func (m *Memory) Summaries() ([]models.PointSummary, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.PointSummary, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, r.Summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Point < out[j].Point })
	return out, m.reportsRun
}
