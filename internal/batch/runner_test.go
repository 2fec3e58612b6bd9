package batch

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/wateruse/internal/api"
	"github.com/tejusbharadwaj/wateruse/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func pointList(n int) []models.MonitoredPoint {
	points := make([]models.MonitoredPoint, n)
	for i := range points {
		points[i] = models.MonitoredPoint(fmt.Sprintf("P%02d-M1", i))
	}
	return points
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	runner := NewRunner(RunnerConfig{Workers: 3}, testLogger())

	var active, peak int32
	summary := runner.Run(context.Background(), "test", pointList(20), func(ctx context.Context, point models.MonitoredPoint) error {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, 20, summary.Count(OutcomeOK))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "test", summary.Job)
}

func TestRunnerClassifiesOutcomes(t *testing.T) {
	runner := NewRunner(RunnerConfig{Workers: 2}, testLogger())
	points := []models.MonitoredPoint{"OK-1", "BAD-1", "MAL-1", "INC-1", "PANIC-1"}

	summary := runner.Run(context.Background(), "test", points, func(ctx context.Context, point models.MonitoredPoint) error {
		switch point {
		case "BAD-1":
			return fmt.Errorf("fetch: %w", api.ErrTransient)
		case "MAL-1":
			return fmt.Errorf("fetch: %w", api.ErrMalformed)
		case "INC-1":
			return ErrIncomplete
		case "PANIC-1":
			panic("boom")
		}
		return nil
	})

	require.Len(t, summary.Outcomes, 5)
	want := []Outcome{OutcomeOK, OutcomeFailed, OutcomeIncomplete, OutcomeIncomplete, OutcomeFailed}
	for i, o := range summary.Outcomes {
		assert.Equal(t, points[i], o.Point, "outcomes keep input order")
		assert.Equal(t, want[i], o.Outcome, "point %s", o.Point)
	}
	assert.Contains(t, summary.Outcomes[4].Error, "panic")
}

func TestRunnerPointTimeout(t *testing.T) {
	runner := NewRunner(RunnerConfig{Workers: 1, PointTimeout: 20 * time.Millisecond}, testLogger())

	summary := runner.Run(context.Background(), "test", pointList(2), func(ctx context.Context, point models.MonitoredPoint) error {
		if point == "P00-M1" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})

	assert.Equal(t, OutcomeFailed, summary.Outcomes[0].Outcome)
	assert.Contains(t, summary.Outcomes[0].Error, "deadline exceeded")
	assert.Equal(t, OutcomeOK, summary.Outcomes[1].Outcome, "a hung point does not stall the batch")
}

func TestRunnerDeadlineSkipsQueuedPoints(t *testing.T) {
	runner := NewRunner(RunnerConfig{Workers: 1, RunDeadline: 30 * time.Millisecond}, testLogger())

	summary := runner.Run(context.Background(), "test", pointList(3), func(ctx context.Context, point models.MonitoredPoint) error {
		// the first point ignores cancellation and outlives the run deadline
		time.Sleep(60 * time.Millisecond)
		return nil
	})

	assert.Equal(t, OutcomeOK, summary.Outcomes[0].Outcome)
	assert.Equal(t, OutcomeSkipped, summary.Outcomes[1].Outcome)
	assert.Equal(t, OutcomeSkipped, summary.Outcomes[2].Outcome)
	assert.Zero(t, summary.Count(OutcomeFailed))
}

func TestRunnerEmpty(t *testing.T) {
	summary := NewRunner(RunnerConfig{Workers: 4}, testLogger()).Run(context.Background(), "test", nil, nil)
	assert.Empty(t, summary.Outcomes)
}
