package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(url string, retries int) *Client {
	return NewClient(ClientConfig{
		URL:            url,
		Hts:            "WaterUse.hts",
		RequestTimeout: time.Second,
		MaxRetries:     retries,
		RetryBaseDelay: time.Millisecond,
	}, testLogger())
}

func TestFetchReadings(t *testing.T) {
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/WaterUse.hts", r.URL.Path)
		assert.Equal(t, "GetData", q.Get("Request"))
		assert.Equal(t, "J36/0016-M1", q.Get("Site"))
		assert.Equal(t, "Compliance Volume", q.Get("Measurement"))
		assert.Equal(t, "json", q.Get("Format"))

		// out of order, a duplicate, and a reading at the exclusive end
		w.Write([]byte(`{"result":[
			{"time": 1577890800, "value": 3},
			{"time": 1577836800, "value": 1},
			{"time": 1577890800, "value": 4},
			{"time": 1578009600, "value": 9}
		]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)
	series, err := client.FetchReadings(context.Background(), "J36/0016-M1", models.ComplianceVolume, from, to)
	require.NoError(t, err)

	require.Equal(t, 2, series.Len())
	assert.Equal(t, from, series.Start())
	assert.Equal(t, 1.0, series.Readings[0].Value)
	assert.Equal(t, 4.0, series.Readings[1].Value, "duplicate timestamps keep the last reading")
	assert.Equal(t, models.ComplianceVolume, series.Readings[1].Type)
}

func TestFetchReadingsErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retries   int
		wantErr   error
		wantCalls int32
	}{
		{name: "not found", status: http.StatusNotFound, retries: 2, wantErr: ErrNotFound, wantCalls: 1},
		{name: "server error retried", status: http.StatusBadGateway, retries: 2, wantErr: ErrTransient, wantCalls: 3},
		{name: "rate limited retried", status: http.StatusTooManyRequests, retries: 1, wantErr: ErrTransient, wantCalls: 2},
		{name: "malformed body", status: http.StatusOK, body: `{"result": [`, retries: 2, wantErr: ErrMalformed, wantCalls: 1},
		{name: "bad request", status: http.StatusBadRequest, retries: 2, wantErr: ErrMalformed, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestClient(srv.URL, tt.retries)
			now := time.Now()
			_, err := client.FetchReadings(context.Background(), "P1", models.Volume, now.Add(-time.Hour), now)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestRetryRecovers(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"result":[{"site":"A"},{"site":"B-M1"}]}`))
	}))
	defer srv.Close()

	sites, err := newTestClient(srv.URL, 2).ListSites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.MonitoredPoint{"A", "B-M1"}, sites)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestListMeasurementTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "MeasurementList", r.URL.Query().Get("Request"))
		w.Write([]byte(`{"result":[
			{"measurement":"Compliance Volume","from":1341100800,"to":1462665600},
			{"measurement":"Volume","from":null,"to":1561852800},
			{"measurement":"Rainfall","from":1341100800,"to":1462665600}
		]}`))
	}))
	defer srv.Close()

	ranges, err := newTestClient(srv.URL, 0).ListMeasurementTypes(context.Background(), "P1")
	require.NoError(t, err)
	require.Len(t, ranges, 2, "non water-use measurements are dropped")

	assert.Equal(t, models.ComplianceVolume, ranges[0].Type)
	assert.Equal(t, time.Date(2012, 7, 1, 0, 0, 0, 0, time.UTC), ranges[0].From)
	assert.Equal(t, models.Volume, ranges[1].Type)
	assert.Equal(t, DefaultFromDate, ranges[1].From)
}

func TestRetryStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		URL:            srv.URL,
		Hts:            "WaterUse.hts",
		RequestTimeout: time.Second,
		MaxRetries:     5,
		RetryBaseDelay: time.Hour,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.ListSites(ctx)
	assert.ErrorIs(t, err, ErrTransient)
	assert.Less(t, time.Since(start), 5*time.Second)
}
