package statistics

import (
	"math"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// litresPerSecondToM3PerDay converts a rate in L/s to a daily volume in m3.
const litresPerSecondToM3PerDay = 86.4

// References derives the consent reference values plotted against a series.
// A nil consent yields no references; the moving average is only present when
// the consent sets both a multi-day volume and a positive period.
func References(consent *models.ResolvedConsent) models.ConsentReferences {
	var refs models.ConsentReferences
	if consent == nil {
		return refs
	}

	if consent.Rate != nil {
		rate := *consent.Rate
		daily := round(rate*litresPerSecondToM3PerDay, 2)
		refs.MaxRate = &rate
		refs.DailyVolume = &daily
	}

	if consent.MultiDayVolume != nil && consent.MultiDayPeriod != nil && *consent.MultiDayPeriod > 0 {
		avg := round(*consent.MultiDayVolume/float64(*consent.MultiDayPeriod), 1)
		refs.MovingAverage = &avg
		refs.MovingAveragePeriod = *consent.MultiDayPeriod
	}

	return refs
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
