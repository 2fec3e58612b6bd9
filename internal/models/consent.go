package models

import "time"

type ConsentStatus string

const (
	ConsentActive  ConsentStatus = "Issued - Active"
	ConsentExpired ConsentStatus = "Expired"
)

// ConsentCondition is one consent's permitted take for a site. Limits the consent
// does not set are nil.
type ConsentCondition struct {
	ConsentID string        `json:"consent_id"`
	SiteID    string        `json:"site_id"`
	Status    ConsentStatus `json:"status"`
	FromDate  time.Time     `json:"from_date"`
	ToDate    time.Time     `json:"to_date"`
	// Rate is the maximum instantaneous rate in L/s.
	Rate *float64 `json:"rate,omitempty"`
	// MultiDayVolume is the volume cap in m3 over MultiDayPeriod days.
	MultiDayVolume *float64 `json:"multi_day_volume,omitempty"`
	MultiDayPeriod *int     `json:"multi_day_period,omitempty"`
}

func (c ConsentCondition) Active() bool {
	return c.Status == ConsentActive
}

// ResolvedConsent is the single effective condition set for a site.
type ResolvedConsent struct {
	SiteID         string   `json:"site_id"`
	ConsentIDs     []string `json:"consent_ids"`
	Rate           *float64 `json:"rate,omitempty"`
	MultiDayVolume *float64 `json:"multi_day_volume,omitempty"`
	MultiDayPeriod *int     `json:"multi_day_period,omitempty"`
	// ConflictingPeriods is set when aggregated active consents disagree on the
	// multi-day period.
	ConflictingPeriods bool `json:"conflicting_periods"`
}

// ConsentReferences are the reference values derived from a resolved consent.
type ConsentReferences struct {
	// MaxRate in L/s.
	MaxRate *float64 `json:"max_rate,omitempty"`
	// DailyVolume in m3/day at MaxRate.
	DailyVolume *float64 `json:"daily_volume,omitempty"`
	// MovingAverage in m3/day, over MovingAveragePeriod days.
	MovingAverage       *float64 `json:"moving_average,omitempty"`
	MovingAveragePeriod int      `json:"moving_average_period,omitempty"`
}
