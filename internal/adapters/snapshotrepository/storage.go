package snapshotrepository

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Amund211/blitzstats/internal/domain"
)

const DATA_FORMAT_VERSION = 1

// Only raw counters are stored, derived stats are recomputed when loading
type snapshotDataStorage struct {
	Nickname     string                         `json:"nick"`
	ClanTag      *string                        `json:"clan,omitempty"`
	All          countersDataStorage            `json:"all"`
	Rating       *ratingDataStorage             `json:"rating,omitempty"`
	Tanks        map[string]countersDataStorage `json:"tanks,omitempty"`
	Achievements map[string]int                 `json:"ach,omitempty"`
}

type countersDataStorage struct {
	Battles              int `json:"b,omitempty"`
	Wins                 int `json:"w,omitempty"`
	Losses               int `json:"l,omitempty"`
	Hits                 int `json:"h,omitempty"`
	Shots                int `json:"s,omitempty"`
	Frags                int `json:"f,omitempty"`
	Spotted              int `json:"sp,omitempty"`
	DamageDealt          int `json:"dd,omitempty"`
	DamageReceived       int `json:"dr,omitempty"`
	XP                   int `json:"xp,omitempty"`
	SurvivedBattles      int `json:"sb,omitempty"`
	DroppedCapturePoints int `json:"dcp,omitempty"`
	CapturePoints        int `json:"cp,omitempty"`
}

type ratingDataStorage struct {
	countersDataStorage
	MMRating               float64 `json:"mm"`
	CalibrationBattlesLeft int     `json:"cbl,omitempty"`
}

func countersToDataStorage(c domain.BattleCounters) countersDataStorage {
	return countersDataStorage{
		Battles:              c.Battles,
		Wins:                 c.Wins,
		Losses:               c.Losses,
		Hits:                 c.Hits,
		Shots:                c.Shots,
		Frags:                c.Frags,
		Spotted:              c.Spotted,
		DamageDealt:          c.DamageDealt,
		DamageReceived:       c.DamageReceived,
		XP:                   c.XP,
		SurvivedBattles:      c.SurvivedBattles,
		DroppedCapturePoints: c.DroppedCapturePoints,
		CapturePoints:        c.CapturePoints,
	}
}

func countersFromDataStorage(c countersDataStorage) domain.BattleCounters {
	return domain.BattleCounters{
		Battles:              c.Battles,
		Wins:                 c.Wins,
		Losses:               c.Losses,
		Hits:                 c.Hits,
		Shots:                c.Shots,
		Frags:                c.Frags,
		Spotted:              c.Spotted,
		DamageDealt:          c.DamageDealt,
		DamageReceived:       c.DamageReceived,
		XP:                   c.XP,
		SurvivedBattles:      c.SurvivedBattles,
		DroppedCapturePoints: c.DroppedCapturePoints,
		CapturePoints:        c.CapturePoints,
	}
}

func snapshotToDataStorage(snapshot *domain.PlayerSnapshot) ([]byte, error) {
	data := snapshotDataStorage{
		Nickname:     snapshot.Nickname,
		ClanTag:      snapshot.ClanTag,
		All:          countersToDataStorage(snapshot.All.BattleCounters),
		Tanks:        make(map[string]countersDataStorage, len(snapshot.Tanks)),
		Achievements: snapshot.Achievements,
	}

	if snapshot.Rating != nil {
		data.Rating = &ratingDataStorage{
			countersDataStorage:    countersToDataStorage(snapshot.Rating.BattleCounters),
			MMRating:               snapshot.Rating.MMRating,
			CalibrationBattlesLeft: snapshot.Rating.CalibrationBattlesLeft,
		}
	}

	for key, tank := range snapshot.Tanks {
		data.Tanks[key] = countersToDataStorage(tank.BattleCounters)
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot data storage: %w", err)
	}
	return encoded, nil
}

// snapshotFromDataStorage rebuilds a normalized snapshot from a stored row
func snapshotFromDataStorage(region domain.Region, accountID int, queriedAt time.Time, encoded []byte) (*domain.PlayerSnapshot, error) {
	var data snapshotDataStorage
	err := json.Unmarshal(encoded, &data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot data: %w", err)
	}

	snapshot := &domain.PlayerSnapshot{
		Timestamp: queriedAt,

		AccountID: accountID,
		Nickname:  data.Nickname,
		Region:    region,
		ClanTag:   data.ClanTag,

		All: domain.CategoryStats{BattleCounters: countersFromDataStorage(data.All)},

		Tanks:        make(map[string]domain.TankStats, len(data.Tanks)),
		Achievements: make(map[string]int, len(data.Achievements)),
	}

	if data.Rating != nil {
		snapshot.Rating = &domain.CategoryStats{
			BattleCounters:         countersFromDataStorage(data.Rating.countersDataStorage),
			MMRating:               data.Rating.MMRating,
			CalibrationBattlesLeft: data.Rating.CalibrationBattlesLeft,
		}
	}

	for key, tank := range data.Tanks {
		tankID, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid stored tank id %q: %w", key, err)
		}
		snapshot.Tanks[key] = domain.TankStats{
			TankID:         tankID,
			BattleCounters: countersFromDataStorage(tank),
		}
	}

	for name, count := range data.Achievements {
		snapshot.Achievements[name] = count
	}

	err = domain.Normalize(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize stored snapshot: %w", err)
	}

	return snapshot, nil
}
