package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/Amund211/blitzstats/internal/adapters/cache"
	"github.com/Amund211/blitzstats/internal/adapters/statsprovider"
	"github.com/Amund211/blitzstats/internal/domain"
)

type GetNormalizedSnapshot func(ctx context.Context, region domain.Region, ref domain.PlayerRef) (*domain.PlayerSnapshot, error)

func playerCacheKey(region domain.Region, ref domain.PlayerRef) string {
	if ref.HasAccountID() {
		return fmt.Sprintf("%s/id/%d", region, ref.AccountID)
	}
	return fmt.Sprintf("%s/name/%s", region, strings.ToLower(ref.Nickname))
}

func getNormalizedSnapshotWithoutCache(ctx context.Context, provider statsprovider.StatsProvider, region domain.Region, ref domain.PlayerRef) (*domain.PlayerSnapshot, error) {
	snapshot, err := provider.GetSnapshot(ctx, string(region), ref)
	if err != nil {
		// NOTE: StatsProvider implementations handle their own error reporting
		return nil, fmt.Errorf("could not get snapshot: %w", err)
	}

	err = domain.Normalize(snapshot)
	if err != nil {
		return nil, fmt.Errorf("could not normalize snapshot: %w", err)
	}

	return snapshot, nil
}

// BuildGetNormalizedSnapshotWithCache de-duplicates concurrent and repeated requests for the same player
func BuildGetNormalizedSnapshotWithCache(provider statsprovider.StatsProvider, snapshotCache cache.Cache[*domain.PlayerSnapshot]) GetNormalizedSnapshot {
	return func(ctx context.Context, region domain.Region, ref domain.PlayerRef) (*domain.PlayerSnapshot, error) {
		snapshot, _, err := cache.GetOrCreate(ctx, snapshotCache, playerCacheKey(region, ref), func() (*domain.PlayerSnapshot, error) {
			return getNormalizedSnapshotWithoutCache(ctx, provider, region, ref)
		})
		if err != nil {
			// NOTE: GetOrCreate only returns an error if create() fails.
			return nil, fmt.Errorf("failed to cache.GetOrCreate snapshot: %w", err)
		}

		// Callers may mutate the result, the cached value is shared
		return snapshot.Clone(), nil
	}
}
