package tankcatalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Amund211/blitzstats/internal/adapters/cache"
	"github.com/Amund211/blitzstats/internal/domain"
)

type mockedLoader struct {
	mu     sync.Mutex
	calls  []string
	result map[int]domain.TankInfo
	err    error
}

func (l *mockedLoader) load(ctx context.Context, region string) (map[int]domain.TankInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = append(l.calls, region)
	return l.result, l.err
}

func (l *mockedLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type mockedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var t34 = domain.TankInfo{TankID: 1, Name: "T-34", Tier: 5, Type: domain.TankTypeMedium, Nation: "ussr", Known: true}

func TestWargamingTankCatalog(t *testing.T) {
	t.Parallel()

	newCatalog := func(t *testing.T, loader *mockedLoader) (*wargamingTankCatalog, *mockedClock) {
		clock := &mockedClock{now: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}
		return newTankCatalogWithCache(loader.load, cache.NewBasicCache[map[int]domain.TankInfo](), clock.Now), clock
	}

	t.Run("known tank", func(t *testing.T) {
		t.Parallel()

		loader := &mockedLoader{result: map[int]domain.TankInfo{1: t34}}
		catalog, _ := newCatalog(t, loader)

		require.Equal(t, t34, catalog.Lookup(t.Context(), domain.RegionEU, 1))
		require.Equal(t, []string{"eu"}, loader.calls)
	})

	t.Run("unknown tank", func(t *testing.T) {
		t.Parallel()

		loader := &mockedLoader{result: map[int]domain.TankInfo{1: t34}}
		catalog, _ := newCatalog(t, loader)

		require.Equal(t, domain.UnknownTank(999), catalog.Lookup(t.Context(), domain.RegionEU, 999))
	})

	t.Run("catalog loaded once per region", func(t *testing.T) {
		t.Parallel()

		loader := &mockedLoader{result: map[int]domain.TankInfo{1: t34}}
		catalog, _ := newCatalog(t, loader)

		for range 5 {
			catalog.Lookup(t.Context(), domain.RegionEU, 1)
		}
		require.Equal(t, 1, loader.callCount())

		catalog.Lookup(t.Context(), domain.RegionASIA, 1)
		require.Equal(t, []string{"eu", "asia"}, loader.calls)
	})

	t.Run("load failure falls back with cooldown", func(t *testing.T) {
		t.Parallel()

		loader := &mockedLoader{err: errors.New("upstream down")}
		catalog, clock := newCatalog(t, loader)

		require.Equal(t, domain.UnknownTank(1), catalog.Lookup(t.Context(), domain.RegionEU, 1))
		require.Equal(t, domain.UnknownTank(17), catalog.Lookup(t.Context(), domain.RegionEU, 17))
		require.Equal(t, 1, loader.callCount())

		loader.mu.Lock()
		loader.err = nil
		loader.result = map[int]domain.TankInfo{1: t34}
		loader.mu.Unlock()

		clock.Advance(failureCooldown)

		require.Equal(t, t34, catalog.Lookup(t.Context(), domain.RegionEU, 1))
		require.Equal(t, 2, loader.callCount())
	})
}

func TestStaticTankCatalog(t *testing.T) {
	t.Parallel()

	catalog := NewStaticTankCatalog(domain.TankInfo{TankID: 1, Name: "T-34", Tier: 5, Type: domain.TankTypeMedium, Nation: "ussr"})

	require.Equal(t, t34, catalog.Lookup(t.Context(), domain.RegionRU, 1))
	require.Equal(t, domain.UnknownTank(2), catalog.Lookup(t.Context(), domain.RegionRU, 2))
}
