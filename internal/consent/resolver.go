// Package consent resolves the single effective set of consent conditions for a
// site from the consents it holds.
package consent

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/wateruse/internal/database"
	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// Resolve picks the effective conditions for site.
//
// All active conditions are aggregated: rates and multi-day volumes are summed
// and the longest multi-day period is kept. When none are active, the condition
// with the latest ToDate is used alone; ties keep the first in input order.
// ok is false when there are no conditions.
func Resolve(site string, conditions []models.ConsentCondition) (resolved *models.ResolvedConsent, ok bool) {
	if len(conditions) == 0 {
		return nil, false
	}

	var active []models.ConsentCondition
	for _, c := range conditions {
		if c.Active() {
			active = append(active, c)
		}
	}

	if len(active) == 0 {
		latest := make([]models.ConsentCondition, len(conditions))
		copy(latest, conditions)
		sort.SliceStable(latest, func(i, j int) bool {
			return latest[i].ToDate.After(latest[j].ToDate)
		})
		return aggregate(site, latest[:1]), true
	}

	return aggregate(site, active), true
}

func aggregate(site string, conditions []models.ConsentCondition) *models.ResolvedConsent {
	r := &models.ResolvedConsent{SiteID: site}

	for _, c := range conditions {
		r.ConsentIDs = append(r.ConsentIDs, c.ConsentID)
		r.Rate = addOptional(r.Rate, c.Rate)
		r.MultiDayVolume = addOptional(r.MultiDayVolume, c.MultiDayVolume)

		if c.MultiDayPeriod == nil {
			continue
		}
		if r.MultiDayPeriod == nil {
			p := *c.MultiDayPeriod
			r.MultiDayPeriod = &p
			continue
		}
		if *c.MultiDayPeriod != *r.MultiDayPeriod {
			r.ConflictingPeriods = true
			if *c.MultiDayPeriod > *r.MultiDayPeriod {
				p := *c.MultiDayPeriod
				r.MultiDayPeriod = &p
			}
		}
	}

	return r
}

func addOptional(sum, v *float64) *float64 {
	if v == nil {
		return sum
	}
	total := *v
	if sum != nil {
		total += *sum
	}
	return &total
}

// Service fetches and resolves consent conditions per site.
type Service struct {
	repo   database.ConsentRepository
	logger logrus.FieldLogger
}

func NewService(repo database.ConsentRepository, logger logrus.FieldLogger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ForPoint resolves the conditions of the site the point belongs to. A nil
// result with a nil error means the site holds no consents.
func (s *Service) ForPoint(ctx context.Context, point models.MonitoredPoint) (*models.ResolvedConsent, error) {
	site := point.SiteID()

	conditions, err := s.repo.FetchConsents(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("fetch consents for %s: %w", site, err)
	}

	resolved, ok := Resolve(site, conditions)
	if !ok {
		s.logger.WithField("site", site).Debug("No consent conditions")
		return nil, nil
	}

	if resolved.ConflictingPeriods {
		s.logger.WithFields(logrus.Fields{
			"site":             site,
			"consents":         resolved.ConsentIDs,
			"multi_day_period": *resolved.MultiDayPeriod,
		}).Warn("Active consents disagree on the multi-day period, using the longest")
	}

	return resolved, nil
}
