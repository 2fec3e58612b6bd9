package models

import "time"

// CompletenessStatus is the outcome of a completeness check.
type CompletenessStatus string

const (
	StatusComplete CompletenessStatus = "Complete"
	// StatusMissing: some but fewer than expected reports in the window.
	StatusMissing CompletenessStatus = "Missing"
	// StatusNoData: nothing in the window; LastSeen holds the latest earlier reading.
	StatusNoData        CompletenessStatus = "NoData"
	StatusNeverReported CompletenessStatus = "NeverReported"
	StatusCannotAssess  CompletenessStatus = "CannotAssess"
	// StatusIncomplete: the telemetry payload could not be parsed.
	StatusIncomplete CompletenessStatus = "Incomplete"
)

// CompletenessResult compares observed and expected reports for one window.
type CompletenessResult struct {
	Point           MonitoredPoint     `json:"point"`
	WindowStart     time.Time          `json:"window_start"`
	WindowEnd       time.Time          `json:"window_end"`
	Status          CompletenessStatus `json:"status"`
	Expected        int                `json:"expected"`
	Observed        int                `json:"observed"`
	PercentComplete float64            `json:"percent_complete"`
	Missing         bool               `json:"missing"`
	LastSeen        *time.Time         `json:"last_seen,omitempty"`
	Mode            *ReportingMode     `json:"mode,omitempty"`
	Detail          string             `json:"detail,omitempty"`
}

// ExtractionStats summarise readings with a strictly positive volume.
type ExtractionStats struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
}

// MonthlyStatistics summarise one calendar month of a combined series.
type MonthlyStatistics struct {
	Point            MonitoredPoint    `json:"point"`
	Month            string            `json:"month"`
	MeasurementTypes []MeasurementType `json:"measurement_types"`
	// Readings counts valid readings, after negative values are removed.
	Readings      int     `json:"readings"`
	DaysWithData  int     `json:"days_with_data"`
	TotalVolume   float64 `json:"total_volume"`
	NegativeCount int     `json:"negative_count"`
	NegativeSum   float64 `json:"negative_sum"`
	// Extraction is nil when no extraction occurred in the month.
	Extraction *ExtractionStats `json:"extraction,omitempty"`
	Mean       float64          `json:"mean"`
	StdDev     float64          `json:"std_dev"`
	Spikes5SD  int              `json:"spikes_5sd"`
	Spikes10SD int              `json:"spikes_10sd"`
	Spikes20SD int              `json:"spikes_20sd"`
}

// PointSummary is the whole-series quality assessment row for a point.
type PointSummary struct {
	Point            MonitoredPoint   `json:"point"`
	InTelemetry      bool             `json:"in_telemetry"`
	MeasurementTypes int              `json:"measurement_types"`
	TypesUsed        int              `json:"types_used"`
	StartDate        time.Time        `json:"start_date"`
	EndDate          time.Time        `json:"end_date"`
	TotalDays        int              `json:"total_days"`
	DaysWithData     int              `json:"days_with_data"`
	TotalReports     int              `json:"total_reports"`
	Extraction       *ExtractionStats `json:"extraction,omitempty"`
	NegativeCount    int              `json:"negative_count"`
	Spikes5SD        int              `json:"spikes_5sd"`
	Spikes10SD       int              `json:"spikes_10sd"`
	Spikes20SD       int              `json:"spikes_20sd"`
}

// DailyPoint is one day of a plot-ready series.
type DailyPoint struct {
	Date     time.Time `json:"date"`
	Readings int       `json:"readings"`
	// Volume and Rate are nil on days without data.
	Volume *float64 `json:"volume,omitempty"`
	// Rate is the average extraction rate in L/s.
	Rate          *float64 `json:"rate,omitempty"`
	MovingAverage *float64 `json:"moving_average,omitempty"`
}

// PointReport bundles the statistics produced for one point.
type PointReport struct {
	Point      MonitoredPoint      `json:"point"`
	Summary    PointSummary        `json:"summary"`
	Monthly    []MonthlyStatistics `json:"monthly"`
	Consent    *ResolvedConsent    `json:"consent,omitempty"`
	References ConsentReferences   `json:"references"`
	Daily      []DailyPoint        `json:"daily,omitempty"`
}
