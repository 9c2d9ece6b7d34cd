package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Amund211/blitzstats/internal/adapters/cache"
	"github.com/Amund211/blitzstats/internal/adapters/snapshotrepository"
	"github.com/Amund211/blitzstats/internal/domain"
	"github.com/Amund211/blitzstats/internal/logging"
	"github.com/Amund211/blitzstats/internal/reporting"
)

const storeTimeout = 2 * time.Second

func sessionCacheKey(region domain.Region, accountID int) string {
	return string(region) + "/" + strconv.Itoa(accountID)
}

// StartSession stores the current stats of the player as the baseline for later sessions
type StartSession func(ctx context.Context, region domain.Region, ref domain.PlayerRef) (*domain.PlayerSnapshot, error)

func BuildStartSession(
	getSnapshot GetNormalizedSnapshot,
	repo snapshotrepository.SnapshotRepository,
	sessionCache *cache.SnapshotCache[*domain.SessionDiffResult],
) StartSession {
	return func(ctx context.Context, region domain.Region, ref domain.PlayerRef) (*domain.PlayerSnapshot, error) {
		snapshot, err := getSnapshot(ctx, region, ref)
		if err != nil {
			return nil, fmt.Errorf("could not get current snapshot: %w", err)
		}

		ctx = logging.AddAccountToContext(ctx, string(snapshot.Region), snapshot.AccountID)
		ctx = reporting.SetAccountInContext(ctx, string(snapshot.Region), snapshot.AccountID)
		logging.FromContext(ctx).InfoContext(ctx, "Starting session", "battles", snapshot.All.Battles)

		// Ignore cancellations from the request context and try to store the data anyway
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
		defer cancel()
		err = repo.StoreLastSnapshot(storeCtx, snapshot)
		if err != nil {
			// NOTE: SnapshotRepository implementations handle their own error reporting
			return nil, fmt.Errorf("could not store last snapshot: %w", err)
		}

		// A cached diff against the previous baseline is stale now
		sessionCache.Delete(sessionCacheKey(snapshot.Region, snapshot.AccountID))

		return snapshot, nil
	}
}
