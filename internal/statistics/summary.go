package statistics

import (
	"time"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// Summary assesses a point's whole combined series. ranges are the measurement
// types listed for the point, whether or not they contributed readings.
func (e *Engine) Summary(c models.CombinedSeries, ranges []models.MeasurementRange) models.PointSummary {
	s := models.PointSummary{
		Point:            c.Point,
		InTelemetry:      len(ranges) > 0 || !c.Empty(),
		MeasurementTypes: len(ranges),
		TypesUsed:        len(c.Segments),
		TotalReports:     len(c.Readings),
	}
	if c.Empty() {
		return s
	}

	s.StartDate = c.Readings[0].Time
	s.EndDate = c.Readings[len(c.Readings)-1].Time
	s.TotalDays = e.daysBetween(s.StartDate, s.EndDate) + 1

	acc := newAccumulator()
	eachVolume(c, func(r models.Reading) {
		acc.add(r.Value, e.dayKey(r.Time))
	})

	s.DaysWithData = len(acc.days)
	s.Extraction = acc.extraction()
	s.NegativeCount = acc.negatives

	if th, ok := e.spikeThresholds(acc); ok {
		var counts [3]int
		eachVolume(c, func(r models.Reading) {
			if r.Value >= 0 {
				countSpikes(r.Value, th, &counts)
			}
		})
		s.Spikes5SD, s.Spikes10SD, s.Spikes20SD = counts[0], counts[1], counts[2]
	}

	return s
}

// Daily returns one entry per calendar day from the first to the last reading
// of c. Days without valid readings have no volume or rate. When refs carries a
// moving-average period, each day with a full trailing window gets the mean
// daily volume over that window, counting days without data as zero.
func (e *Engine) Daily(c models.CombinedSeries, refs models.ConsentReferences) []models.DailyPoint {
	if c.Empty() {
		return nil
	}

	first := e.startOfDay(c.Readings[0].Time)
	last := e.startOfDay(c.Readings[len(c.Readings)-1].Time)
	if e.cfg.WaterYearPadding {
		first = waterYearStart(first)
	}

	n := e.daysBetween(first, last) + 1
	days := make([]models.DailyPoint, n)
	volumes := make([]float64, n)
	for i := range days {
		days[i].Date = first.AddDate(0, 0, i)
	}

	eachVolume(c, func(r models.Reading) {
		i := e.daysBetween(first, r.Time)
		if i < 0 || i >= n {
			return
		}
		days[i].Readings++
		if r.Value < 0 {
			return
		}
		volumes[i] += r.Value
		if days[i].Volume == nil {
			days[i].Volume = new(float64)
		}
		*days[i].Volume = volumes[i]
	})

	for i := range days {
		if days[i].Volume != nil {
			// m3/day to L/s
			rate := round(*days[i].Volume/litresPerSecondToM3PerDay, 3)
			days[i].Rate = &rate
		}
	}

	if period := refs.MovingAveragePeriod; period > 0 {
		var window float64
		for i := range days {
			window += volumes[i]
			if i >= period {
				window -= volumes[i-period]
			}
			if i >= period-1 {
				avg := round(window/float64(period), 1)
				days[i].MovingAverage = &avg
			}
		}
	}

	return days
}

// Report bundles every statistic for one point.
func (e *Engine) Report(
	c models.CombinedSeries,
	ranges []models.MeasurementRange,
	consent *models.ResolvedConsent,
	withDaily bool,
) models.PointReport {
	refs := References(consent)
	report := models.PointReport{
		Point:      c.Point,
		Summary:    e.Summary(c, ranges),
		Monthly:    e.Monthly(c),
		Consent:    consent,
		References: refs,
	}
	if withDaily {
		report.Daily = e.Daily(c, refs)
	}
	return report
}

func (e *Engine) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(e.cfg.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.cfg.Location)
}

// daysBetween counts calendar days from a's day to b's day.
func (e *Engine) daysBetween(a, b time.Time) int {
	ay, am, ad := a.In(e.cfg.Location).Date()
	by, bm, bd := b.In(e.cfg.Location).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / (24 * time.Hour))
}

// waterYearStart returns the 1 July on or before day.
func waterYearStart(day time.Time) time.Time {
	y := day.Year()
	if day.Month() < time.July {
		y--
	}
	return time.Date(y, time.July, 1, 0, 0, 0, 0, day.Location())
}
