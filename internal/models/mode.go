package models

import "time"

// ModeMethod records which period a reporting mode was derived from.
type ModeMethod string

const (
	MethodAnnual ModeMethod = "Annual"
	MethodQtr1   ModeMethod = "Qtr1"
	MethodQtr2   ModeMethod = "Qtr2"
	MethodQtr3   ModeMethod = "Qtr3"
	MethodQtr4   ModeMethod = "Qtr4"
	// MethodNone marks a point with no reliable reporting mode.
	MethodNone ModeMethod = "None"
)

// ReportingMode is a point's inferred normal reporting cadence.
type ReportingMode struct {
	Point          MonitoredPoint `json:"point"`
	ReadingsPerDay int            `json:"readings_per_day"`
	Interval       time.Duration  `json:"interval"`
	// ModeFrequency is the share of days in the source period that reported
	// exactly ReadingsPerDay readings.
	ModeFrequency float64    `json:"mode_frequency"`
	Method        ModeMethod `json:"method"`
	ComputedAt    time.Time  `json:"computed_at"`
}

// Reliable reports whether the mode can be used to assess completeness.
func (m ReportingMode) Reliable() bool {
	return m.Method != MethodNone && m.ReadingsPerDay > 0 && m.Interval > 0
}

// IntervalFor converts a per-day reading count into a reporting interval.
func IntervalFor(readingsPerDay int) time.Duration {
	if readingsPerDay <= 0 {
		return 0
	}
	return 24 * time.Hour / time.Duration(readingsPerDay)
}
