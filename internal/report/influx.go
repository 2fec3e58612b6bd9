package report

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

const (
	completenessMeasurement = "completeness"
	monthlyMeasurement      = "monthly_statistics"
)

// Influx writes results as InfluxDB points. Completeness is stamped at the end
// of its window and monthly statistics at the start of their month.
type Influx struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInflux connects to InfluxDB and verifies the server is healthy.
func NewInflux(ctx context.Context, url, token, org, bucket string) (*Influx, error) {
	client := influxdb2.NewClient(url, token)

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}
	if health.Status != domain.HealthCheckStatusPass {
		client.Close()
		return nil, fmt.Errorf("InfluxDB is not healthy: %s", health.Status)
	}

	return &Influx{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
	}, nil
}

func (s *Influx) WriteCompleteness(ctx context.Context, runID string, results []models.CompletenessResult) error {
	points := make([]*write.Point, 0, len(results))
	for _, r := range results {
		fields := map[string]interface{}{
			"expected":         r.Expected,
			"observed":         r.Observed,
			"percent_complete": r.PercentComplete,
			"missing":          r.Missing,
		}
		if r.LastSeen != nil {
			fields["last_seen"] = r.LastSeen.Unix()
		}
		if r.Mode != nil {
			fields["readings_per_day"] = r.Mode.ReadingsPerDay
		}

		points = append(points, write.NewPoint(
			completenessMeasurement,
			map[string]string{
				"point":  string(r.Point),
				"site":   r.Point.SiteID(),
				"status": string(r.Status),
				"run_id": runID,
			},
			fields,
			r.WindowEnd,
		))
	}

	if len(points) == 0 {
		return nil
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write completeness points: %w", err)
	}
	return nil
}

func (s *Influx) WriteReports(ctx context.Context, runID string, reports []models.PointReport) error {
	var points []*write.Point
	for _, rep := range reports {
		for _, m := range rep.Monthly {
			ts, err := time.Parse("2006-01", m.Month)
			if err != nil {
				return fmt.Errorf("invalid month %q for %s: %w", m.Month, rep.Point, err)
			}

			fields := map[string]interface{}{
				"readings":       m.Readings,
				"days_with_data": m.DaysWithData,
				"total_volume":   m.TotalVolume,
				"negative_count": m.NegativeCount,
				"negative_sum":   m.NegativeSum,
				"mean":           m.Mean,
				"std_dev":        m.StdDev,
				"spikes_5sd":     m.Spikes5SD,
				"spikes_10sd":    m.Spikes10SD,
				"spikes_20sd":    m.Spikes20SD,
			}
			if m.Extraction != nil {
				fields["extraction_min"] = m.Extraction.Min
				fields["extraction_mean"] = m.Extraction.Mean
				fields["extraction_max"] = m.Extraction.Max
			}
			if rep.References.DailyVolume != nil {
				fields["consented_daily_volume"] = *rep.References.DailyVolume
			}

			points = append(points, write.NewPoint(
				monthlyMeasurement,
				map[string]string{
					"point":  string(rep.Point),
					"site":   rep.Point.SiteID(),
					"run_id": runID,
				},
				fields,
				ts,
			))
		}
	}

	if len(points) == 0 {
		return nil
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write monthly statistics points: %w", err)
	}
	return nil
}

// Close closes the InfluxDB client.
func (s *Influx) Close() {
	s.client.Close()
}
