package models

import (
	"sort"
	"time"
)

// Reading is a single time-stamped value for a point and measurement type.
type Reading struct {
	Point MonitoredPoint  `json:"point"`
	Type  MeasurementType `json:"type"`
	Time  time.Time       `json:"time"`
	Value float64         `json:"value"`
}

// Series is the time-ordered readings for one (point, measurement type) pair.
// Timestamps are unique within a series.
type Series struct {
	Point    MonitoredPoint  `json:"point"`
	Type     MeasurementType `json:"type"`
	Readings []Reading       `json:"readings"`
}

// NewSeries sorts readings by time and drops duplicate timestamps, keeping the
// last reading received for each instant.
func NewSeries(point MonitoredPoint, mtype MeasurementType, readings []Reading) Series {
	sorted := make([]Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	deduped := sorted[:0]
	for _, r := range sorted {
		r.Point = point
		r.Type = mtype
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(r.Time) {
			// last wins
			deduped[n-1] = r
			continue
		}
		deduped = append(deduped, r)
	}

	return Series{Point: point, Type: mtype, Readings: deduped}
}

func (s Series) Len() int {
	return len(s.Readings)
}

func (s Series) Empty() bool {
	return len(s.Readings) == 0
}

// Start returns the first timestamp, or the zero time for an empty series.
func (s Series) Start() time.Time {
	if len(s.Readings) == 0 {
		return time.Time{}
	}
	return s.Readings[0].Time
}

// End returns the last timestamp, or the zero time for an empty series.
func (s Series) End() time.Time {
	if len(s.Readings) == 0 {
		return time.Time{}
	}
	return s.Readings[len(s.Readings)-1].Time
}

// Between returns the readings in the half-open interval [from, to).
func (s Series) Between(from, to time.Time) []Reading {
	lo := sort.Search(len(s.Readings), func(i int) bool {
		return !s.Readings[i].Time.Before(from)
	})
	hi := sort.Search(len(s.Readings), func(i int) bool {
		return !s.Readings[i].Time.Before(to)
	})
	if lo >= hi {
		return nil
	}
	return s.Readings[lo:hi]
}

// After returns the readings strictly after t.
func (s Series) After(t time.Time) []Reading {
	i := sort.Search(len(s.Readings), func(i int) bool {
		return s.Readings[i].Time.After(t)
	})
	return s.Readings[i:]
}

// MeasurementRange is the availability of a measurement type for a point as
// listed by the telemetry service.
type MeasurementRange struct {
	Type MeasurementType `json:"type"`
	From time.Time       `json:"from"`
	To   time.Time       `json:"to"`
}

// Segment is the contribution of one measurement type to a combined series.
type Segment struct {
	Type  MeasurementType `json:"type"`
	Start time.Time       `json:"start"`
	End   time.Time       `json:"end"`
	Count int             `json:"count"`
}

// CombinedSeries is the non-overlapping stitched sequence of a point's readings
// across its measurement types.
type CombinedSeries struct {
	Point    MonitoredPoint `json:"point"`
	Readings []Reading      `json:"readings"`
	Segments []Segment      `json:"segments"`
}

func (c CombinedSeries) Empty() bool {
	return len(c.Readings) == 0
}

// Between returns the combined readings in [from, to).
func (c CombinedSeries) Between(from, to time.Time) []Reading {
	return Series{Point: c.Point, Readings: c.Readings}.Between(from, to)
}

// Last returns the latest reading, if any.
func (c CombinedSeries) Last() (Reading, bool) {
	if len(c.Readings) == 0 {
		return Reading{}, false
	}
	return c.Readings[len(c.Readings)-1], true
}

// Types returns the measurement types that contributed readings, in segment order.
func (c CombinedSeries) Types() []MeasurementType {
	types := make([]MeasurementType, 0, len(c.Segments))
	for _, seg := range c.Segments {
		types = append(types, seg.Type)
	}
	return types
}
