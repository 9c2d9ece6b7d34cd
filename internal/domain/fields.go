package domain

import "fmt"

type RawCounterField struct {
	Name   string
	Access func(c *BattleCounters) *int
}

type DerivedField struct {
	Name   string
	Access func(d *DerivedStats) *float64
}

var RawCounterFields = []RawCounterField{
	{"battles", func(c *BattleCounters) *int { return &c.Battles }},
	{"wins", func(c *BattleCounters) *int { return &c.Wins }},
	{"losses", func(c *BattleCounters) *int { return &c.Losses }},
	{"hits", func(c *BattleCounters) *int { return &c.Hits }},
	{"shots", func(c *BattleCounters) *int { return &c.Shots }},
	{"frags", func(c *BattleCounters) *int { return &c.Frags }},
	{"spotted", func(c *BattleCounters) *int { return &c.Spotted }},
	{"damage_dealt", func(c *BattleCounters) *int { return &c.DamageDealt }},
	{"damage_received", func(c *BattleCounters) *int { return &c.DamageReceived }},
	{"xp", func(c *BattleCounters) *int { return &c.XP }},
	{"survived_battles", func(c *BattleCounters) *int { return &c.SurvivedBattles }},
	{"dropped_capture_points", func(c *BattleCounters) *int { return &c.DroppedCapturePoints }},
	{"capture_points", func(c *BattleCounters) *int { return &c.CapturePoints }},
}

var DerivedFields = []DerivedField{
	{"winrate", func(d *DerivedStats) *float64 { return &d.Winrate }},
	{"accuracy", func(d *DerivedStats) *float64 { return &d.Accuracy }},
	{"avg_xp", func(d *DerivedStats) *float64 { return &d.AvgXP }},
	{"avg_damage", func(d *DerivedStats) *float64 { return &d.AvgDamage }},
	{"avg_spotted", func(d *DerivedStats) *float64 { return &d.AvgSpotted }},
	{"frags_per_battle", func(d *DerivedStats) *float64 { return &d.FragsPerBattle }},
	{"survival_ratio", func(d *DerivedStats) *float64 { return &d.SurvivalRatio }},
	{"damage_ratio", func(d *DerivedStats) *float64 { return &d.DamageRatio }},
	{"destruction_ratio", func(d *DerivedStats) *float64 { return &d.DestructionRatio }},
	{"not_survived_battles", func(d *DerivedStats) *float64 { return &d.NotSurvivedBattles }},
}

// StatField reads a single named value from a category as a float
type StatField struct {
	Name string
	Get  func(c *CategoryStats) float64
}

var statFieldsByName = buildStatFieldsByName()

func buildStatFieldsByName() map[string]StatField {
	fields := make(map[string]StatField, len(RawCounterFields)+len(DerivedFields))
	for _, raw := range RawCounterFields {
		fields[raw.Name] = StatField{
			Name: raw.Name,
			Get:  func(c *CategoryStats) float64 { return float64(*raw.Access(&c.BattleCounters)) },
		}
	}
	for _, derived := range DerivedFields {
		fields[derived.Name] = StatField{
			Name: derived.Name,
			Get:  func(c *CategoryStats) float64 { return *derived.Access(&c.DerivedStats) },
		}
	}
	fields["mm_rating"] = StatField{Name: "mm_rating", Get: func(c *CategoryStats) float64 { return c.MMRating }}
	fields["rating"] = StatField{Name: "rating", Get: func(c *CategoryStats) float64 { return float64(c.Rating) }}
	return fields
}

// LookupStatField resolves a stat name once, so callers fail early on typos
func LookupStatField(name string) (StatField, error) {
	field, ok := statFieldsByName[name]
	if !ok {
		return StatField{}, fmt.Errorf("%w: %s", ErrUnknownStatField, name)
	}
	return field, nil
}
