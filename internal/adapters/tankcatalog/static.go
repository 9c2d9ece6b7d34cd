package tankcatalog

import (
	"context"

	"github.com/Amund211/blitzstats/internal/domain"
)

type staticTankCatalog struct {
	tanks map[int]domain.TankInfo
}

// NewStaticTankCatalog serves the same tanks for every region
func NewStaticTankCatalog(tanks ...domain.TankInfo) TankCatalog {
	byID := make(map[int]domain.TankInfo, len(tanks))
	for _, tank := range tanks {
		tank.Known = true
		byID[tank.TankID] = tank
	}
	return &staticTankCatalog{tanks: byID}
}

func (c *staticTankCatalog) Lookup(ctx context.Context, region domain.Region, tankID int) domain.TankInfo {
	info, ok := c.tanks[tankID]
	if !ok {
		return domain.UnknownTank(tankID)
	}
	return info
}
