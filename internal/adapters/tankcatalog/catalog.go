package tankcatalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Amund211/blitzstats/internal/adapters/cache"
	"github.com/Amund211/blitzstats/internal/domain"
	"github.com/Amund211/blitzstats/internal/logging"
	"github.com/Amund211/blitzstats/internal/reporting"
)

const catalogTTL = 24 * time.Hour

// Failed loads are not retried for this long, so one session diff doesn't refetch per tank
const failureCooldown = time.Minute

type TankCatalog interface {
	Lookup(ctx context.Context, region domain.Region, tankID int) domain.TankInfo
}

type LoadCatalogFunc func(ctx context.Context, region string) (map[int]domain.TankInfo, error)

type wargamingTankCatalog struct {
	load    LoadCatalogFunc
	cache   cache.Cache[map[int]domain.TankInfo]
	nowFunc func() time.Time

	failuresLock sync.Mutex
	failures     map[domain.Region]time.Time
}

// NewTankCatalog lazily loads the vehicle encyclopedia of each region
func NewTankCatalog(load LoadCatalogFunc, nowFunc func() time.Time) TankCatalog {
	return newTankCatalogWithCache(load, cache.NewTTLCache[map[int]domain.TankInfo](catalogTTL), nowFunc)
}

func newTankCatalogWithCache(load LoadCatalogFunc, c cache.Cache[map[int]domain.TankInfo], nowFunc func() time.Time) *wargamingTankCatalog {
	return &wargamingTankCatalog{
		load:     load,
		cache:    c,
		nowFunc:  nowFunc,
		failures: make(map[domain.Region]time.Time),
	}
}

func (c *wargamingTankCatalog) inCooldown(region domain.Region) bool {
	c.failuresLock.Lock()
	defer c.failuresLock.Unlock()

	failedAt, ok := c.failures[region]
	if !ok {
		return false
	}
	if c.nowFunc().Sub(failedAt) >= failureCooldown {
		delete(c.failures, region)
		return false
	}
	return true
}

func (c *wargamingTankCatalog) recordFailure(region domain.Region) {
	c.failuresLock.Lock()
	defer c.failuresLock.Unlock()

	c.failures[region] = c.nowFunc()
}

func (c *wargamingTankCatalog) Lookup(ctx context.Context, region domain.Region, tankID int) domain.TankInfo {
	if c.inCooldown(region) {
		return domain.UnknownTank(tankID)
	}

	catalog, _, err := cache.GetOrCreate(ctx, c.cache, string(region), func() (map[int]domain.TankInfo, error) {
		return c.load(ctx, string(region))
	})
	if err != nil {
		c.recordFailure(region)

		logging.FromContext(ctx).ErrorContext(ctx, "Failed to load tank catalog", "region", region, "error", err.Error())
		reporting.Report(ctx, fmt.Errorf("failed to load tank catalog: %w", err), map[string]string{
			"region": string(region),
		})
		return domain.UnknownTank(tankID)
	}

	info, ok := catalog[tankID]
	if !ok {
		return domain.UnknownTank(tankID)
	}
	return info
}
