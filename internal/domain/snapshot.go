package domain

import (
	"time"
)

// MinimumBattles is the battle count below which a snapshot is not meaningful
const MinimumBattles = 100

type PlayerSnapshot struct {
	Timestamp time.Time

	AccountID int
	Nickname  string
	Region    Region
	ClanTag   *string

	All    CategoryStats
	Rating *CategoryStats

	Tanks        map[string]TankStats
	Achievements map[string]int

	// Set by Normalize once every derived field is populated
	Normalized bool
}

// Achievement returns the count for the given achievement, 0 if absent
func (s *PlayerSnapshot) Achievement(name string) int {
	return s.Achievements[name]
}

// RatingOrZero returns the rating category, or an empty category if the player has none
func (s *PlayerSnapshot) RatingOrZero() CategoryStats {
	if s.Rating == nil {
		return CategoryStats{}
	}
	return *s.Rating
}

// Clone returns a deep copy, so the diff engine and caches never share mutable state
func (s *PlayerSnapshot) Clone() *PlayerSnapshot {
	if s == nil {
		return nil
	}

	clone := *s

	if s.ClanTag != nil {
		tag := *s.ClanTag
		clone.ClanTag = &tag
	}
	if s.Rating != nil {
		rating := *s.Rating
		clone.Rating = &rating
	}

	clone.Tanks = make(map[string]TankStats, len(s.Tanks))
	for id, tank := range s.Tanks {
		clone.Tanks[id] = tank
	}

	clone.Achievements = make(map[string]int, len(s.Achievements))
	for name, count := range s.Achievements {
		clone.Achievements[name] = count
	}

	return &clone
}

// BattleCounters are the raw counters reported upstream
type BattleCounters struct {
	Battles              int
	Wins                 int
	Losses               int
	Hits                 int
	Shots                int
	Frags                int
	Spotted              int
	DamageDealt          int
	DamageReceived       int
	XP                   int
	SurvivedBattles      int
	DroppedCapturePoints int
	CapturePoints        int
}

// DerivedStats are computed from BattleCounters by Normalize
type DerivedStats struct {
	Winrate            float64
	Accuracy           float64
	AvgXP              float64
	AvgDamage          float64
	AvgSpotted         float64
	FragsPerBattle     float64
	SurvivalRatio      float64
	DamageRatio        float64
	DestructionRatio   float64
	NotSurvivedBattles float64
}

type CategoryStats struct {
	BattleCounters
	DerivedStats

	// Rating category only
	MMRating               float64
	CalibrationBattlesLeft int
	Rating                 int
}

type TankStats struct {
	TankID int

	BattleCounters
	DerivedStats
}
