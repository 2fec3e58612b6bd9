//go:generate go run github.com/golang/mock/mockgen -destination=./mocks/telemetry.go -package=mocks . TelemetrySource

// Package api is the client for the water-use telemetry web service.
//
// The service exposes the sites it holds, the measurement types recorded for
// each site and the readings of one measurement over a date range. Every call is
// bounded by a request timeout, rate limited, and retried with exponential
// backoff when the failure is transient.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

var (
	// ErrNotFound means the point or measurement type has no data in the service.
	ErrNotFound = errors.New("not found in telemetry service")
	// ErrTransient is a network or server fault worth retrying.
	ErrTransient = errors.New("transient telemetry failure")
	// ErrMalformed means the service answered with a payload we could not parse.
	ErrMalformed = errors.New("malformed telemetry response")
)

// DefaultFromDate is assumed when the service lists a measurement without a start.
var DefaultFromDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// TelemetrySource is the read side of the telemetry service.
type TelemetrySource interface {
	// FetchReadings returns the readings of one measurement type in [from, to).
	FetchReadings(ctx context.Context, point models.MonitoredPoint, mtype models.MeasurementType, from, to time.Time) (models.Series, error)

	// ListMeasurementTypes returns the water-use measurement types recorded for
	// the point and their availability.
	ListMeasurementTypes(ctx context.Context, point models.MonitoredPoint) ([]models.MeasurementRange, error)

	// ListSites returns every point the service holds.
	ListSites(ctx context.Context) ([]models.MonitoredPoint, error)
}

// APIResponse is the envelope of a GetData response.
type APIResponse struct {
	Result []struct {
		Time  int64   `json:"time"`
		Value float64 `json:"value"`
	} `json:"result"`
}

type measurementResponse struct {
	Result []struct {
		Measurement string `json:"measurement"`
		From        *int64 `json:"from"`
		To          *int64 `json:"to"`
	} `json:"result"`
}

type siteResponse struct {
	Result []struct {
		Site string `json:"site"`
	} `json:"result"`
}

// ClientConfig tunes the telemetry client.
type ClientConfig struct {
	URL            string
	Hts            string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RateLimit      float64
	RateLimitBurst int
}

// Client implements TelemetrySource over HTTP.
type Client struct {
	baseURL    string
	hts        string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	logger     logrus.FieldLogger
}

func NewClient(cfg ClientConfig, logger logrus.FieldLogger) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:    cfg.URL,
		hts:        cfg.Hts,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		logger:     logger,
	}
}

func (c *Client) FetchReadings(
	ctx context.Context,
	point models.MonitoredPoint,
	mtype models.MeasurementType,
	from, to time.Time,
) (models.Series, error) {
	params := url.Values{}
	params.Set("Request", "GetData")
	params.Set("Site", string(point))
	params.Set("Measurement", string(mtype))
	params.Set("From", from.Format(time.RFC3339))
	params.Set("To", to.Format(time.RFC3339))

	var apiResp APIResponse
	if err := c.getWithRetry(ctx, "fetch_readings", params, &apiResp); err != nil {
		return models.Series{Point: point, Type: mtype}, err
	}

	readings := make([]models.Reading, 0, len(apiResp.Result))
	for _, data := range apiResp.Result {
		t := time.Unix(data.Time, 0).UTC()
		// the service treats To as inclusive
		if t.Before(from) || !t.Before(to) {
			continue
		}
		readings = append(readings, models.Reading{
			Point: point,
			Type:  mtype,
			Time:  t,
			Value: data.Value,
		})
	}

	return models.NewSeries(point, mtype, readings), nil
}

func (c *Client) ListMeasurementTypes(ctx context.Context, point models.MonitoredPoint) ([]models.MeasurementRange, error) {
	params := url.Values{}
	params.Set("Request", "MeasurementList")
	params.Set("Site", string(point))

	var resp measurementResponse
	if err := c.getWithRetry(ctx, "list_measurements", params, &resp); err != nil {
		return nil, err
	}

	ranges := make([]models.MeasurementRange, 0, len(resp.Result))
	for _, m := range resp.Result {
		mtype, err := models.ParseMeasurementType(m.Measurement)
		if err != nil {
			// not a water-use measurement
			continue
		}
		if m.To == nil {
			return nil, fmt.Errorf("%w: measurement %q has no end date", ErrMalformed, m.Measurement)
		}
		r := models.MeasurementRange{
			Type: mtype,
			From: DefaultFromDate,
			To:   time.Unix(*m.To, 0).UTC(),
		}
		if m.From != nil {
			r.From = time.Unix(*m.From, 0).UTC()
		}
		ranges = append(ranges, r)
	}

	return ranges, nil
}

func (c *Client) ListSites(ctx context.Context) ([]models.MonitoredPoint, error) {
	params := url.Values{}
	params.Set("Request", "SiteList")

	var resp siteResponse
	if err := c.getWithRetry(ctx, "list_sites", params, &resp); err != nil {
		return nil, err
	}

	sites := make([]models.MonitoredPoint, 0, len(resp.Result))
	for _, s := range resp.Result {
		sites = append(sites, models.MonitoredPoint(s.Site))
	}
	return sites, nil
}

// getWithRetry issues the request, retrying transient failures up to maxRetries
// times with exponential backoff.
func (c *Client) getWithRetry(ctx context.Context, operation string, params url.Values, out interface{}) error {
	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<(attempt-1))
			c.logger.WithFields(logrus.Fields{
				"operation": operation,
				"attempt":   attempt,
				"delay":     delay,
			}).Warnf("Retrying telemetry request: %v", lastErr)

			select {
			case <-ctx.Done():
				fetchRequests.WithLabelValues(operation, "canceled").Inc()
				return fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
			case <-time.After(delay):
			}
		}

		lastErr = c.get(ctx, params, out)
		if lastErr == nil || !errors.Is(lastErr, ErrTransient) {
			break
		}
	}

	fetchLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	fetchRequests.WithLabelValues(operation, outcome(lastErr)).Inc()

	return lastErr
}

func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	params.Set("Service", "Hilltop")
	params.Set("Format", "json")
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, c.hts, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: got %d", ErrTransient, resp.StatusCode)
	default:
		return fmt.Errorf("%w: got %d", ErrMalformed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "transient"
	}
}

// Compile-time interface implementation check
var _ TelemetrySource = (*Client)(nil)
