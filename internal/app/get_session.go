package app

import (
	"context"
	"fmt"

	"github.com/Amund211/blitzstats/internal/adapters/cache"
	"github.com/Amund211/blitzstats/internal/adapters/snapshotrepository"
	"github.com/Amund211/blitzstats/internal/domain"
	"github.com/Amund211/blitzstats/internal/logging"
	"github.com/Amund211/blitzstats/internal/reporting"
)

// GetSession diffs the current stats of the player against the stored baseline.
// With zeroBypass an unchanged player gets an all-zero result instead of domain.ErrNoDiffData.
type GetSession func(ctx context.Context, region domain.Region, ref domain.PlayerRef, zeroBypass bool) (*domain.SessionDiffResult, error)

func BuildGetSession(
	getSnapshot GetNormalizedSnapshot,
	repo snapshotrepository.SnapshotRepository,
	catalog TankCatalog,
	sessionCache *cache.SnapshotCache[*domain.SessionDiffResult],
) GetSession {
	return func(ctx context.Context, region domain.Region, ref domain.PlayerRef, zeroBypass bool) (*domain.SessionDiffResult, error) {
		current, err := getSnapshot(ctx, region, ref)
		if err != nil {
			return nil, fmt.Errorf("could not get current snapshot: %w", err)
		}

		ctx = logging.AddAccountToContext(ctx, string(current.Region), current.AccountID)
		ctx = reporting.SetAccountInContext(ctx, string(current.Region), current.AccountID)
		key := sessionCacheKey(current.Region, current.AccountID)

		if !zeroBypass {
			if cached, ok := sessionCache.Get(key); ok {
				logging.FromContext(ctx).InfoContext(ctx, "Getting cached session", "key", key, "cache", "hit")
				return cached, nil
			}
		}

		last, err := repo.GetLastSnapshot(ctx, current.Region, current.AccountID)
		if err != nil {
			// NOTE: SnapshotRepository implementations handle their own error reporting
			return nil, fmt.Errorf("could not get last snapshot: %w", err)
		}

		result, err := ComputeSessionDiff(ctx, last, current, zeroBypass, catalog)
		if err != nil {
			return nil, fmt.Errorf("could not compute session: %w", err)
		}

		if !zeroBypass {
			sessionCache.Put(key, result)
		}

		return result, nil
	}
}
