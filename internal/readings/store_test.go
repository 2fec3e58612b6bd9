package readings_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/wateruse/internal/api"
	"github.com/tejusbharadwaj/wateruse/internal/api/mocks"
	"github.com/tejusbharadwaj/wateruse/internal/models"
	"github.com/tejusbharadwaj/wateruse/internal/readings"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func day(d int) time.Time {
	return time.Date(2021, 3, d, 0, 0, 0, 0, time.UTC)
}

func series(mtype models.MeasurementType, days ...int) models.Series {
	var rs []models.Reading
	for _, d := range days {
		rs = append(rs, models.Reading{Time: day(d), Value: float64(d)})
	}
	return models.NewSeries("P1", mtype, rs)
}

func TestCombined(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockTelemetrySource(ctrl)
	store := readings.NewStore(source, testLogger())
	ctx := context.Background()
	from, to := day(1), day(20)

	source.EXPECT().ListMeasurementTypes(gomock.Any(), models.MonitoredPoint("P1")).Return([]models.MeasurementRange{
		{Type: models.ComplianceVolume, From: day(1), To: day(10)},
		{Type: models.Volume, From: day(5), To: day(15)},
		{Type: models.WaterMeter, From: day(1), To: day(2)},
		// ends before the window starts, never fetched
		{Type: models.VolumeFlow, From: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC)},
	}, nil)
	source.EXPECT().FetchReadings(gomock.Any(), models.MonitoredPoint("P1"), models.ComplianceVolume, from, to).
		Return(series(models.ComplianceVolume, 1, 2, 3, 10), nil)
	source.EXPECT().FetchReadings(gomock.Any(), models.MonitoredPoint("P1"), models.Volume, from, to).
		Return(series(models.Volume, 5, 9, 11, 15), nil)
	source.EXPECT().FetchReadings(gomock.Any(), models.MonitoredPoint("P1"), models.WaterMeter, from, to).
		Return(models.Series{}, api.ErrNotFound)

	combined, ranges, err := store.Combined(ctx, "P1", from, to)
	require.NoError(t, err)
	assert.Len(t, ranges, 4)

	require.Len(t, combined.Segments, 2)
	assert.Equal(t, models.ComplianceVolume, combined.Segments[0].Type)
	assert.Equal(t, 4, combined.Segments[0].Count)
	assert.Equal(t, models.Volume, combined.Segments[1].Type)
	assert.Equal(t, day(11), combined.Segments[1].Start)
	assert.Equal(t, 6, len(combined.Readings))
}

func TestCombinedUnknownPoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockTelemetrySource(ctrl)
	source.EXPECT().ListMeasurementTypes(gomock.Any(), gomock.Any()).Return(nil, api.ErrNotFound)

	combined, ranges, err := readings.NewStore(source, testLogger()).Combined(context.Background(), "P9", day(1), day(2))
	require.NoError(t, err)
	assert.True(t, combined.Empty())
	assert.Empty(t, ranges)
}

func TestCombinedPropagatesMalformed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockTelemetrySource(ctrl)
	source.EXPECT().ListMeasurementTypes(gomock.Any(), gomock.Any()).Return([]models.MeasurementRange{
		{Type: models.Volume, From: day(1), To: day(10)},
	}, nil)
	source.EXPECT().FetchReadings(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(models.Series{}, api.ErrMalformed)

	_, _, err := readings.NewStore(source, testLogger()).Combined(context.Background(), "P1", day(1), day(5))
	assert.ErrorIs(t, err, api.ErrMalformed)
}

func TestLastBefore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockTelemetrySource(ctrl)
	store := readings.NewStore(source, testLogger())

	source.EXPECT().ListMeasurementTypes(gomock.Any(), gomock.Any()).Return([]models.MeasurementRange{
		{Type: models.Volume, From: day(1), To: day(8)},
	}, nil)
	source.EXPECT().FetchReadings(gomock.Any(), gomock.Any(), models.Volume, day(1), day(20)).
		Return(series(models.Volume, 2, 8), nil)

	last, err := store.LastBefore(context.Background(), "P1", day(20), 19*24*time.Hour)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, day(8), last.Time)
}
