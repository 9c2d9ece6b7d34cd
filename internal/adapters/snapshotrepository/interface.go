package snapshotrepository

import (
	"context"

	"github.com/Amund211/blitzstats/internal/domain"
)

// SnapshotRepository keeps the "last stats" of each player, the baseline sessions are computed from
type SnapshotRepository interface {
	// Replace the stored snapshot for the snapshot's region and account
	StoreLastSnapshot(ctx context.Context, snapshot *domain.PlayerSnapshot) error

	// Raises domain.ErrSessionNotStarted if nothing is stored for the player
	GetLastSnapshot(ctx context.Context, region domain.Region, accountID int) (*domain.PlayerSnapshot, error)
}
