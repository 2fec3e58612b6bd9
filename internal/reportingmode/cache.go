package reportingmode

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/tejusbharadwaj/wateruse/internal/database"
	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// DefaultMaxAge is how long a stored mode is trusted before it is recomputed.
const DefaultMaxAge = 8 * 7 * 24 * time.Hour

// Computer produces a fresh reporting mode for a point.
type Computer interface {
	Compute(ctx context.Context, point models.MonitoredPoint, asOf time.Time) (models.ReportingMode, error)
}

// Cache is the process-wide reporting-mode table. Lookups go through an in-memory
// LRU to the repository, and stale or absent modes are recomputed once per point
// no matter how many callers ask concurrently.
type Cache struct {
	lru     *lru.Cache
	repo    database.ModeRepository
	compute Computer
	maxAge  time.Duration
	group   singleflight.Group
	logger  logrus.FieldLogger

	now func() time.Time
}

// NewCache builds a mode table holding up to size modes in memory.
func NewCache(size int, repo database.ModeRepository, compute Computer, maxAge time.Duration, logger logrus.FieldLogger) (*Cache, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create mode cache: %w", err)
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Cache{
		lru:     l,
		repo:    repo,
		compute: compute,
		maxAge:  maxAge,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Lookup returns the stored mode without computing one. A nil mode means the
// point has never been assessed.
func (c *Cache) Lookup(ctx context.Context, point models.MonitoredPoint) (*models.ReportingMode, error) {
	if v, ok := c.lru.Get(point); ok {
		mode := v.(models.ReportingMode)
		return &mode, nil
	}

	mode, err := c.repo.GetMode(ctx, point)
	if err != nil {
		return nil, err
	}
	if mode != nil {
		c.lru.Add(point, *mode)
	}
	return mode, nil
}

// Get returns a mode no older than the cache's max age, recomputing when needed.
// If recomputation fails and a stale mode exists, the stale mode is returned.
func (c *Cache) Get(ctx context.Context, point models.MonitoredPoint) (models.ReportingMode, error) {
	stored, err := c.Lookup(ctx, point)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"point": point,
		}).Warnf("Failed to read stored mode, recomputing: %v", err)
		stored = nil
	}

	if stored != nil && c.now().Sub(stored.ComputedAt) <= c.maxAge {
		return *stored, nil
	}

	mode, err := c.Refresh(ctx, point)
	if err != nil {
		if stored != nil {
			c.logger.WithFields(logrus.Fields{
				"point":       point,
				"computed_at": stored.ComputedAt,
			}).Warnf("Mode refresh failed, using stale mode: %v", err)
			return *stored, nil
		}
		return models.ReportingMode{Point: point, Method: models.MethodNone}, err
	}
	return mode, nil
}

// Refresh recomputes and stores the point's mode. Concurrent refreshes of the
// same point share one computation.
func (c *Cache) Refresh(ctx context.Context, point models.MonitoredPoint) (models.ReportingMode, error) {
	v, err, shared := c.group.Do(string(point), func() (interface{}, error) {
		mode, err := c.compute.Compute(ctx, point, c.now())
		if err != nil {
			return nil, err
		}
		if err := c.repo.SaveMode(ctx, mode); err != nil {
			return nil, fmt.Errorf("store mode for %s: %w", point, err)
		}
		c.lru.Add(point, mode)
		return mode, nil
	})
	if err != nil {
		return models.ReportingMode{Point: point, Method: models.MethodNone}, err
	}

	if shared {
		c.logger.WithField("point", point).Debug("Joined in-flight mode computation")
	}
	return v.(models.ReportingMode), nil
}

// Purge drops the in-memory copies so the next lookup reads the repository.
func (c *Cache) Purge() {
	c.lru.Purge()
}
