package statsprovider

import (
	"context"

	"github.com/Amund211/blitzstats/internal/domain"
)

type StatsProvider interface {
	// Resolve an exact nickname to an account id.
	//
	// Raises domain.ErrNoPlayersFound, domain.ErrAmbiguousName or domain.ErrInvalidName for unusable names
	ResolveAccount(ctx context.Context, region string, nickname string) (int, error)

	// Fetch a raw (not normalized) snapshot of the player.
	//
	// Raises domain.ErrInvalidRegion before any request is made when the region is unknown.
	// Raises domain.ErrRateLimitExceeded or domain.ErrSourceUnavailable if the upstream is still failing after retries.
	// Raises domain.ErrInsufficientBattles if the player has too few battles.
	GetSnapshot(ctx context.Context, region string, ref domain.PlayerRef) (*domain.PlayerSnapshot, error)

	// Fetch the vehicle encyclopedia, keyed by tank id
	GetTankCatalog(ctx context.Context, region string) (map[int]domain.TankInfo, error)
}
