// Package reportingmode infers how often each monitored point normally reports.
//
// The estimate is the most common number of readings per day over the year
// before the assessment date. Days without readings count as zero. A point
// whose annual mode is zero falls back to the four preceding 91-day quarters,
// most recent first.
package reportingmode

import (
	"time"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

const (
	yearDays    = 365
	quarterDays = 91
	quarters    = 4
)

// DefaultMinReadings is the fewest readings in the year needed to estimate a mode.
const DefaultMinReadings = 30

// Estimator derives reporting modes from reading timestamps.
type Estimator struct {
	// MinReadings below which a year of data is too sparse to estimate from.
	MinReadings int
	// Location defines day boundaries. Nil means UTC.
	Location *time.Location
}

// PeriodEnd returns the exclusive end of the estimation period for asOf: the
// start of asOf's day in the estimator's location.
func (e Estimator) PeriodEnd(asOf time.Time) time.Time {
	y, m, d := asOf.In(e.location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.location())
}

// PeriodStart returns the inclusive start of the year-long estimation period.
func (e Estimator) PeriodStart(asOf time.Time) time.Time {
	return e.PeriodEnd(asOf).AddDate(0, 0, -yearDays)
}

// Estimate computes the reporting mode of point from readings as of asOf.
// Readings outside the year before asOf are ignored.
func (e Estimator) Estimate(point models.MonitoredPoint, readings []models.Reading, asOf time.Time) models.ReportingMode {
	end := e.PeriodEnd(asOf)
	start := end.AddDate(0, 0, -yearDays)

	// counts[i] is the number of readings on day start+i
	counts := make([]int, yearDays)
	total := 0
	for _, r := range readings {
		if r.Time.Before(start) || !r.Time.Before(end) {
			continue
		}
		if i := e.dayIndex(start, r.Time); i >= 0 && i < yearDays {
			counts[i]++
			total++
		}
	}

	result := models.ReportingMode{
		Point:      point,
		Method:     models.MethodNone,
		ComputedAt: asOf,
	}

	minReadings := e.MinReadings
	if minReadings <= 0 {
		minReadings = DefaultMinReadings
	}
	if total < minReadings {
		return result
	}

	if mode, freq := modeOf(counts); mode > 0 {
		return e.finish(result, mode, freq, models.MethodAnnual)
	}

	methods := []models.ModeMethod{models.MethodQtr1, models.MethodQtr2, models.MethodQtr3, models.MethodQtr4}
	for q := 0; q < quarters; q++ {
		hi := yearDays - q*quarterDays
		lo := hi - quarterDays
		if mode, freq := modeOf(counts[lo:hi]); mode > 0 {
			return e.finish(result, mode, freq, methods[q])
		}
	}

	return result
}

func (e Estimator) finish(m models.ReportingMode, readingsPerDay int, freq float64, method models.ModeMethod) models.ReportingMode {
	m.ReadingsPerDay = readingsPerDay
	m.Interval = models.IntervalFor(readingsPerDay)
	m.ModeFrequency = freq
	m.Method = method
	return m
}

func (e Estimator) location() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}

// dayIndex counts calendar days from start to t. Calendar arithmetic keeps DST
// days in the right bucket.
func (e Estimator) dayIndex(start, t time.Time) int {
	loc := e.location()
	sy, sm, sd := start.In(loc).Date()
	ty, tm, td := t.In(loc).Date()
	s := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	d := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(d.Sub(s) / (24 * time.Hour))
}

// modeOf returns the most frequent per-day count and the share of days at it.
// Ties go to the larger count, the shorter interval.
func modeOf(counts []int) (int, float64) {
	if len(counts) == 0 {
		return 0, 0
	}

	freq := make(map[int]int)
	for _, c := range counts {
		freq[c]++
	}

	mode, best := 0, -1
	for c, n := range freq {
		if n > best || (n == best && c > mode) {
			mode, best = c, n
		}
	}
	return mode, float64(best) / float64(len(counts))
}
