package domaintest

import (
	"strconv"
	"time"

	"github.com/Amund211/blitzstats/internal/domain"
)

type snapshotBuilder struct {
	snapshot *domain.PlayerSnapshot
}

func (sb *snapshotBuilder) WithNickname(nickname string) *snapshotBuilder {
	sb.snapshot.Nickname = nickname
	return sb
}

func (sb *snapshotBuilder) WithRegion(region domain.Region) *snapshotBuilder {
	sb.snapshot.Region = region
	return sb
}

func (sb *snapshotBuilder) WithClanTag(tag string) *snapshotBuilder {
	sb.snapshot.ClanTag = &tag
	return sb
}

func (sb *snapshotBuilder) WithAll(counters domain.BattleCounters) *snapshotBuilder {
	sb.snapshot.All.BattleCounters = counters
	return sb
}

func (sb *snapshotBuilder) WithBattles(battles, wins int) *snapshotBuilder {
	sb.snapshot.All.Battles = battles
	sb.snapshot.All.Wins = wins
	sb.snapshot.All.Losses = battles - wins
	return sb
}

func (sb *snapshotBuilder) WithRating(counters domain.BattleCounters, mmRating float64, calibrationBattlesLeft int) *snapshotBuilder {
	sb.snapshot.Rating = &domain.CategoryStats{
		BattleCounters:         counters,
		MMRating:               mmRating,
		CalibrationBattlesLeft: calibrationBattlesLeft,
	}
	return sb
}

func (sb *snapshotBuilder) WithTank(tankID int, counters domain.BattleCounters) *snapshotBuilder {
	sb.snapshot.Tanks[strconv.Itoa(tankID)] = domain.TankStats{
		TankID:         tankID,
		BattleCounters: counters,
	}
	return sb
}

func (sb *snapshotBuilder) WithTankBattles(tankID, battles int) *snapshotBuilder {
	return sb.WithTank(tankID, domain.BattleCounters{Battles: battles})
}

func (sb *snapshotBuilder) WithAchievement(name string, count int) *snapshotBuilder {
	sb.snapshot.Achievements[name] = count
	return sb
}

// Build returns a raw, not yet normalized, snapshot
func (sb *snapshotBuilder) Build() *domain.PlayerSnapshot {
	// Make a copy, so further mutations to the builder don't affect the returned snapshot
	return sb.snapshot.Clone()
}

// BuildNormalized returns a normalized snapshot, panicking if normalization fails
func (sb *snapshotBuilder) BuildNormalized() *domain.PlayerSnapshot {
	snapshot := sb.Build()
	if err := domain.Normalize(snapshot); err != nil {
		panic(err)
	}
	return snapshot
}

func NewSnapshotBuilder(accountID int, timestamp time.Time) *snapshotBuilder {
	snapshot := &domain.PlayerSnapshot{
		Timestamp:    timestamp,
		AccountID:    accountID,
		Nickname:     "player" + strconv.Itoa(accountID),
		Region:       domain.RegionEU,
		All:          domain.CategoryStats{BattleCounters: domain.BattleCounters{Battles: domain.MinimumBattles}},
		Tanks:        map[string]domain.TankStats{},
		Achievements: map[string]int{},
	}
	return &snapshotBuilder{
		snapshot: snapshot,
	}
}
