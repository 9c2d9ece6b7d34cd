package domain

import "time"

// CategoryDelta is the absolute difference between two normalized categories
type CategoryDelta struct {
	BattleCounters
	DerivedStats

	MMRating float64
	// Rating points delta, only populated for the rating category
	Rating float64
}

// CategoryRate holds derived stats computed from the differenced counters
type CategoryRate struct {
	DerivedStats
}

type TankSessionEntry struct {
	TankID      int
	Info        TankInfo
	BattleDelta int

	Diff    CategoryDelta
	Session CategoryRate
}

type SessionDiffResult struct {
	AccountID int
	Region    Region
	Start     time.Time
	End       time.Time

	MainDiff    CategoryDelta
	MainSession CategoryRate

	RatingDiff    CategoryDelta
	RatingSession CategoryRate

	// Ordered by BattleDelta descending
	Tanks []TankSessionEntry
}
