package domain_test

import (
	"math"
	"testing"

	"github.com/Amund211/blitzstats/internal/domain"
	"github.com/stretchr/testify/require"
)

func requireFinite(t *testing.T, d domain.DerivedStats) {
	t.Helper()
	for _, field := range domain.DerivedFields {
		value := *field.Access(&d)
		require.False(t, math.IsNaN(value), "%s is NaN", field.Name)
		require.False(t, math.IsInf(value, 0), "%s is infinite", field.Name)
	}
}

func TestDeriveStats(t *testing.T) {
	t.Parallel()

	t.Run("zero battles gives zero rates", func(t *testing.T) {
		t.Parallel()

		derived := domain.DeriveStats(domain.BattleCounters{
			Hits:           10,
			Shots:          0,
			XP:             1000,
			DamageDealt:    5000,
			DamageReceived: 0,
			Frags:          3,
		})
		requireFinite(t, derived)

		require.Equal(t, 0.0, derived.Winrate)
		require.Equal(t, 0.0, derived.Accuracy)
		require.Equal(t, 0.0, derived.AvgDamage)
		require.Equal(t, 0.0, derived.AvgXP)
		require.Equal(t, 0.0, derived.AvgSpotted)
		require.Equal(t, 0.0, derived.FragsPerBattle)
		require.Equal(t, 0.0, derived.SurvivalRatio)
		require.Equal(t, 0.0, derived.DamageRatio)
		require.Equal(t, 0.0, derived.DestructionRatio)
	})

	t.Run("damage ratio is zero without received damage", func(t *testing.T) {
		t.Parallel()

		derived := domain.DeriveStats(domain.BattleCounters{
			Battles:        10,
			DamageDealt:    12345,
			DamageReceived: 0,
		})
		require.Equal(t, 0.0, derived.DamageRatio)
	})

	t.Run("regular values", func(t *testing.T) {
		t.Parallel()

		derived := domain.DeriveStats(domain.BattleCounters{
			Battles:         200,
			Wins:            120,
			Losses:          78,
			Hits:            1500,
			Shots:           2000,
			Frags:           250,
			Spotted:         300,
			DamageDealt:     333_333,
			DamageReceived:  222_222,
			XP:              150_150,
			SurvivedBattles: 75,
		})

		require.InDelta(t, 60.0, derived.Winrate, 1e-9)
		require.InDelta(t, 75.0, derived.Accuracy, 1e-9)
		require.Equal(t, 750.0, derived.AvgXP)
		require.Equal(t, 1666.0, derived.AvgDamage)
		require.InDelta(t, 1.5, derived.AvgSpotted, 1e-9)
		require.InDelta(t, 1.25, derived.FragsPerBattle, 1e-9)
		require.InDelta(t, 0.375, derived.SurvivalRatio, 1e-9)
		require.InDelta(t, 1.5, derived.DamageRatio, 1e-9)
		require.Equal(t, 125.0, derived.NotSurvivedBattles)
		require.InDelta(t, 2.0, derived.DestructionRatio, 1e-9)
	})

	t.Run("every battle survived", func(t *testing.T) {
		t.Parallel()

		derived := domain.DeriveStats(domain.BattleCounters{
			Battles:         5,
			Frags:           7,
			SurvivedBattles: 5,
		})
		require.Equal(t, 0.0, derived.NotSurvivedBattles)
		require.Equal(t, 0.0, derived.DestructionRatio)
	})
}

func TestComputeRating(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                   string
		mmRating               float64
		calibrationBattlesLeft int
		battles                int
		expected               int
	}{
		{name: "calibrated", mmRating: 123.4, calibrationBattlesLeft: 0, battles: 50, expected: 4234},
		{name: "negative mm rating", mmRating: -10.04, calibrationBattlesLeft: 0, battles: 50, expected: 2900},
		{name: "still calibrating", mmRating: 123.45, calibrationBattlesLeft: 3, battles: 7, expected: 0},
		{name: "no battles", mmRating: 123.45, calibrationBattlesLeft: 0, battles: 0, expected: 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, c.expected, domain.ComputeRating(c.mmRating, c.calibrationBattlesLeft, c.battles))
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	newSnapshot := func() *domain.PlayerSnapshot {
		return &domain.PlayerSnapshot{
			AccountID: 1234,
			Region:    domain.RegionEU,
			All: domain.CategoryStats{
				BattleCounters: domain.BattleCounters{Battles: 100, Wins: 55, Losses: 44, SurvivedBattles: 40},
			},
			Rating: &domain.CategoryStats{
				BattleCounters:         domain.BattleCounters{Battles: 20, Wins: 12},
				MMRating:               50,
				CalibrationBattlesLeft: 0,
			},
			Tanks: map[string]domain.TankStats{
				"1": {TankID: 1, BattleCounters: domain.BattleCounters{Battles: 10, Wins: 6, Losses: 999}},
				"2": {TankID: 2},
			},
		}
	}

	t.Run("populates every bucket", func(t *testing.T) {
		t.Parallel()

		snapshot := newSnapshot()
		require.NoError(t, domain.Normalize(snapshot))

		require.True(t, snapshot.Normalized)
		require.InDelta(t, 55.0, snapshot.All.Winrate, 1e-9)
		// Losses of categories come from the raw counter
		require.Equal(t, 44, snapshot.All.Losses)
		require.Equal(t, 0, snapshot.All.Rating)

		require.InDelta(t, 60.0, snapshot.Rating.Winrate, 1e-9)
		require.Equal(t, 3500, snapshot.Rating.Rating)

		tank := snapshot.Tanks["1"]
		require.InDelta(t, 60.0, tank.Winrate, 1e-9)
		// Tank losses are derived
		require.Equal(t, 4, tank.Losses)

		empty := snapshot.Tanks["2"]
		requireFinite(t, empty.DerivedStats)
		require.Equal(t, 0, empty.Losses)

		require.NotNil(t, snapshot.Achievements)
		require.Equal(t, 0, snapshot.Achievement("markOfMastery"))
	})

	t.Run("no rating category", func(t *testing.T) {
		t.Parallel()

		snapshot := newSnapshot()
		snapshot.Rating = nil
		require.NoError(t, domain.Normalize(snapshot))
		require.Nil(t, snapshot.Rating)
		require.Equal(t, domain.CategoryStats{}, snapshot.RatingOrZero())
	})

	t.Run("incomplete snapshots", func(t *testing.T) {
		t.Parallel()

		require.ErrorIs(t, domain.Normalize(nil), domain.ErrIncompleteSnapshot)

		missingID := newSnapshot()
		missingID.AccountID = 0
		require.ErrorIs(t, domain.Normalize(missingID), domain.ErrIncompleteSnapshot)
		require.False(t, missingID.Normalized)

		badTankKey := newSnapshot()
		badTankKey.Tanks["3"] = domain.TankStats{TankID: 4}
		require.ErrorIs(t, domain.Normalize(badTankKey), domain.ErrIncompleteSnapshot)
		require.False(t, badTankKey.Normalized)
	})
}

func TestClone(t *testing.T) {
	t.Parallel()

	tag := "TAG"
	original := &domain.PlayerSnapshot{
		AccountID:    1,
		ClanTag:      &tag,
		Rating:       &domain.CategoryStats{MMRating: 1},
		Tanks:        map[string]domain.TankStats{"1": {TankID: 1}},
		Achievements: map[string]int{"warrior": 3},
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	*clone.ClanTag = "OTHER"
	clone.Rating.MMRating = 2
	clone.Tanks["2"] = domain.TankStats{TankID: 2}
	clone.Achievements["warrior"] = 4

	require.Equal(t, "TAG", *original.ClanTag)
	require.Equal(t, 1.0, original.Rating.MMRating)
	require.Len(t, original.Tanks, 1)
	require.Equal(t, 3, original.Achievement("warrior"))

	require.Nil(t, (*domain.PlayerSnapshot)(nil).Clone())
}
