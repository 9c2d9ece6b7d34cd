package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/Amund211/blitzstats/internal/domain"
)

type TankCatalog interface {
	// Lookup never fails, unrecognized ids get domain.UnknownTank
	Lookup(ctx context.Context, region domain.Region, tankID int) domain.TankInfo
}

// Rating points shown for a session are relative to this base
const ratingDiffBase = 3000

func diffCounters(oldCounters, newCounters domain.BattleCounters) domain.BattleCounters {
	var diff domain.BattleCounters
	for _, field := range domain.RawCounterFields {
		*field.Access(&diff) = *field.Access(&newCounters) - *field.Access(&oldCounters)
	}
	return diff
}

func diffDerived(oldDerived, newDerived domain.DerivedStats) domain.DerivedStats {
	var diff domain.DerivedStats
	for _, field := range domain.DerivedFields {
		*field.Access(&diff) = *field.Access(&newDerived) - *field.Access(&oldDerived)
	}
	return diff
}

func diffCategory(oldStats, newStats domain.CategoryStats) (domain.CategoryDelta, domain.CategoryRate) {
	counters := diffCounters(oldStats.BattleCounters, newStats.BattleCounters)

	delta := domain.CategoryDelta{
		BattleCounters: counters,
		DerivedStats:   diffDerived(oldStats.DerivedStats, newStats.DerivedStats),
		MMRating:       newStats.MMRating - oldStats.MMRating,
	}

	return delta, domain.CategoryRate{DerivedStats: domain.DeriveStats(counters)}
}

func diffTanks(ctx context.Context, region domain.Region, oldTanks, newTanks map[string]domain.TankStats, catalog TankCatalog) []domain.TankSessionEntry {
	entries := []domain.TankSessionEntry{}

	// Map iteration order is random, walk the ids in a fixed order so ties are deterministic
	keys := make([]string, 0, len(newTanks))
	for key := range newTanks {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return newTanks[a].TankID - newTanks[b].TankID
	})

	for _, key := range keys {
		newTank := newTanks[key]
		oldTank, ok := oldTanks[key]
		if !ok {
			// No baseline for tanks bought during the session
			continue
		}

		battleDelta := newTank.Battles - oldTank.Battles
		if battleDelta <= 0 {
			continue
		}

		counters := diffCounters(oldTank.BattleCounters, newTank.BattleCounters)

		info := domain.UnknownTank(newTank.TankID)
		if catalog != nil {
			info = catalog.Lookup(ctx, region, newTank.TankID)
		}

		entries = append(entries, domain.TankSessionEntry{
			TankID:      newTank.TankID,
			Info:        info,
			BattleDelta: battleDelta,
			Diff: domain.CategoryDelta{
				BattleCounters: counters,
				DerivedStats:   diffDerived(oldTank.DerivedStats, newTank.DerivedStats),
			},
			Session: domain.CategoryRate{DerivedStats: domain.DeriveStats(counters)},
		})
	}

	slices.SortStableFunc(entries, func(a, b domain.TankSessionEntry) int {
		return b.BattleDelta - a.BattleDelta
	})

	return entries
}

// ComputeSessionDiff reports what changed between two normalized snapshots of the same player.
// Neither snapshot is modified.
//
// Returns domain.ErrNoDiffData when no battles were played, unless zeroBypass is set.
func ComputeSessionDiff(ctx context.Context, oldSnapshot, newSnapshot *domain.PlayerSnapshot, zeroBypass bool, catalog TankCatalog) (*domain.SessionDiffResult, error) {
	if oldSnapshot == nil || newSnapshot == nil {
		return nil, fmt.Errorf("%w: missing snapshot", domain.ErrTypeMismatch)
	}
	if !oldSnapshot.Normalized || !newSnapshot.Normalized {
		return nil, fmt.Errorf("%w: snapshots must be normalized", domain.ErrTypeMismatch)
	}
	if oldSnapshot.AccountID != newSnapshot.AccountID {
		return nil, fmt.Errorf("%w: account %d does not match account %d", domain.ErrTypeMismatch, oldSnapshot.AccountID, newSnapshot.AccountID)
	}
	if oldSnapshot.Region != newSnapshot.Region {
		return nil, fmt.Errorf("%w: region %s does not match region %s", domain.ErrTypeMismatch, oldSnapshot.Region, newSnapshot.Region)
	}

	oldRating := oldSnapshot.RatingOrZero()
	newRating := newSnapshot.RatingOrZero()

	result := &domain.SessionDiffResult{
		AccountID: newSnapshot.AccountID,
		Region:    newSnapshot.Region,
		Start:     oldSnapshot.Timestamp,
		End:       newSnapshot.Timestamp,
		Tanks:     []domain.TankSessionEntry{},
	}

	diffBattlesAll := newSnapshot.All.Battles - oldSnapshot.All.Battles
	diffBattlesRating := newRating.Battles - oldRating.Battles
	if diffBattlesAll == 0 && diffBattlesRating == 0 {
		if !zeroBypass {
			return nil, fmt.Errorf("%w: no battles since %s", domain.ErrNoDiffData, oldSnapshot.Timestamp.Format("2006-01-02 15:04:05"))
		}
		return result, nil
	}

	result.MainDiff, result.MainSession = diffCategory(oldSnapshot.All, newSnapshot.All)

	result.RatingDiff, result.RatingSession = diffCategory(oldRating, newRating)
	result.RatingDiff.Rating = result.RatingDiff.MMRating*100 + ratingDiffBase

	result.Tanks = diffTanks(ctx, newSnapshot.Region, oldSnapshot.Tanks, newSnapshot.Tanks, catalog)

	return result, nil
}
