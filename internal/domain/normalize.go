package domain

import (
	"fmt"
	"math"
	"strconv"
)

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

func flooredRatio(numerator, denominator int) float64 {
	return math.Floor(ratio(numerator, denominator))
}

// DeriveStats computes the ratio stats for a set of counters. Every zero denominator yields 0.
func DeriveStats(c BattleCounters) DerivedStats {
	notSurvived := c.Battles - c.SurvivedBattles

	return DerivedStats{
		Winrate:            ratio(c.Wins, c.Battles) * 100,
		Accuracy:           ratio(c.Hits, c.Shots) * 100,
		AvgXP:              flooredRatio(c.XP, c.Battles),
		AvgDamage:          flooredRatio(c.DamageDealt, c.Battles),
		AvgSpotted:         ratio(c.Spotted, c.Battles),
		FragsPerBattle:     ratio(c.Frags, c.Battles),
		SurvivalRatio:      ratio(c.SurvivedBattles, c.Battles),
		DamageRatio:        ratio(c.DamageDealt, c.DamageReceived),
		DestructionRatio:   ratio(c.Frags, notSurvived),
		NotSurvivedBattles: float64(notSurvived),
	}
}

// ComputeRating converts the matchmaking rating to the displayed rating.
// Players still in calibration have no rating.
func ComputeRating(mmRating float64, calibrationBattlesLeft, battles int) int {
	if calibrationBattlesLeft != 0 || battles == 0 {
		return 0
	}
	return int(math.Round(mmRating*10 + 3000))
}

func normalizeCategory(stats *CategoryStats, isRating bool) {
	stats.DerivedStats = DeriveStats(stats.BattleCounters)
	if isRating {
		stats.Rating = ComputeRating(stats.MMRating, stats.CalibrationBattlesLeft, stats.Battles)
	}
}

// NormalizeTank populates the derived fields of a single tank
func NormalizeTank(tank *TankStats) {
	tank.Losses = tank.Battles - tank.Wins
	tank.DerivedStats = DeriveStats(tank.BattleCounters)
}

// Normalize populates every derived field of the snapshot in place
func Normalize(snapshot *PlayerSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: snapshot is nil", ErrIncompleteSnapshot)
	}
	if snapshot.AccountID <= 0 {
		return fmt.Errorf("%w: missing account id", ErrIncompleteSnapshot)
	}

	for key, tank := range snapshot.Tanks {
		if key != strconv.Itoa(tank.TankID) {
			return fmt.Errorf("%w: tank key %s does not match tank id %d", ErrIncompleteSnapshot, key, tank.TankID)
		}
	}

	normalizeCategory(&snapshot.All, false)
	if snapshot.Rating != nil {
		normalizeCategory(snapshot.Rating, true)
	}

	for key, tank := range snapshot.Tanks {
		NormalizeTank(&tank)
		snapshot.Tanks[key] = tank
	}

	if snapshot.Achievements == nil {
		snapshot.Achievements = map[string]int{}
	}
	if snapshot.Tanks == nil {
		snapshot.Tanks = map[string]TankStats{}
	}

	snapshot.Normalized = true

	return nil
}
