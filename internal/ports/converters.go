package ports

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/Amund211/blitzstats/internal/domain"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Cause   string `json:"cause"`
}

type SnapshotResponse struct {
	Success  bool            `json:"success"`
	Snapshot *SnapshotObject `json:"snapshot"`
}

type SessionResponse struct {
	Success bool           `json:"success"`
	Session *SessionObject `json:"session"`
}

type CountersObject struct {
	Battles              int `json:"battles"`
	Wins                 int `json:"wins"`
	Losses               int `json:"losses"`
	Hits                 int `json:"hits"`
	Shots                int `json:"shots"`
	Frags                int `json:"frags"`
	Spotted              int `json:"spotted"`
	DamageDealt          int `json:"damageDealt"`
	DamageReceived       int `json:"damageReceived"`
	XP                   int `json:"xp"`
	SurvivedBattles      int `json:"survivedBattles"`
	DroppedCapturePoints int `json:"droppedCapturePoints"`
	CapturePoints        int `json:"capturePoints"`
}

type DerivedObject struct {
	Winrate            float64 `json:"winrate"`
	Accuracy           float64 `json:"accuracy"`
	AvgXP              float64 `json:"avgXp"`
	AvgDamage          float64 `json:"avgDamage"`
	AvgSpotted         float64 `json:"avgSpotted"`
	FragsPerBattle     float64 `json:"fragsPerBattle"`
	SurvivalRatio      float64 `json:"survivalRatio"`
	DamageRatio        float64 `json:"damageRatio"`
	DestructionRatio   float64 `json:"destructionRatio"`
	NotSurvivedBattles float64 `json:"notSurvivedBattles"`
}

type CategoryObject struct {
	CountersObject
	DerivedObject
}

type RatingObject struct {
	CountersObject
	DerivedObject
	MMRating               float64 `json:"mmRating"`
	CalibrationBattlesLeft int     `json:"calibrationBattlesLeft"`
	Rating                 int     `json:"rating"`
}

type TankObject struct {
	TankID int `json:"tankId"`
	CountersObject
	DerivedObject
}

type SnapshotObject struct {
	Timestamp    time.Time      `json:"timestamp"`
	AccountID    int            `json:"accountId"`
	Nickname     string         `json:"nickname"`
	Region       string         `json:"region"`
	ClanTag      *string        `json:"clanTag"`
	All          CategoryObject `json:"all"`
	Rating       *RatingObject  `json:"rating"`
	Tanks        []TankObject   `json:"tanks"`
	Achievements map[string]int `json:"achievements"`
}

type CategoryDeltaObject struct {
	CountersObject
	DerivedObject
	MMRating float64 `json:"mmRating"`
	Rating   float64 `json:"rating"`
}

type TankInfoObject struct {
	Name   string `json:"name"`
	Tier   int    `json:"tier"`
	Type   string `json:"type"`
	Nation string `json:"nation"`
	Known  bool   `json:"known"`
}

type TankSessionObject struct {
	TankID      int                 `json:"tankId"`
	Info        TankInfoObject      `json:"info"`
	BattleDelta int                 `json:"battleDelta"`
	Diff        CategoryDeltaObject `json:"diff"`
	Session     DerivedObject       `json:"session"`
}

type SessionObject struct {
	AccountID     int                 `json:"accountId"`
	Region        string              `json:"region"`
	Start         time.Time           `json:"start"`
	End           time.Time           `json:"end"`
	MainDiff      CategoryDeltaObject `json:"mainDiff"`
	MainSession   DerivedObject       `json:"mainSession"`
	RatingDiff    CategoryDeltaObject `json:"ratingDiff"`
	RatingSession DerivedObject       `json:"ratingSession"`
	Tanks         []TankSessionObject `json:"tanks"`
}

func countersToObject(c domain.BattleCounters) CountersObject {
	return CountersObject{
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

func derivedToObject(d domain.DerivedStats) DerivedObject {
	return DerivedObject{
		Winrate:            d.Winrate,
		Accuracy:           d.Accuracy,
		AvgXP:              d.AvgXP,
		AvgDamage:          d.AvgDamage,
		AvgSpotted:         d.AvgSpotted,
		FragsPerBattle:     d.FragsPerBattle,
		SurvivalRatio:      d.SurvivalRatio,
		DamageRatio:        d.DamageRatio,
		DestructionRatio:   d.DestructionRatio,
		NotSurvivedBattles: d.NotSurvivedBattles,
	}
}

func deltaToObject(d domain.CategoryDelta) CategoryDeltaObject {
	return CategoryDeltaObject{
		CountersObject: countersToObject(d.BattleCounters),
		DerivedObject:  derivedToObject(d.DerivedStats),
		MMRating:       d.MMRating,
		Rating:         d.Rating,
	}
}

func snapshotToObject(snapshot *domain.PlayerSnapshot) *SnapshotObject {
	tanks := make([]TankObject, 0, len(snapshot.Tanks))
	for _, tank := range snapshot.Tanks {
		tanks = append(tanks, TankObject{
			TankID:         tank.TankID,
			CountersObject: countersToObject(tank.BattleCounters),
			DerivedObject:  derivedToObject(tank.DerivedStats),
		})
	}
	slices.SortFunc(tanks, func(a, b TankObject) int {
		return a.TankID - b.TankID
	})

	var rating *RatingObject
	if snapshot.Rating != nil {
		rating = &RatingObject{
			CountersObject:         countersToObject(snapshot.Rating.BattleCounters),
			DerivedObject:          derivedToObject(snapshot.Rating.DerivedStats),
			MMRating:               snapshot.Rating.MMRating,
			CalibrationBattlesLeft: snapshot.Rating.CalibrationBattlesLeft,
			Rating:                 snapshot.Rating.Rating,
		}
	}

	achievements := snapshot.Achievements
	if achievements == nil {
		achievements = map[string]int{}
	}

	return &SnapshotObject{
		Timestamp: snapshot.Timestamp,
		AccountID: snapshot.AccountID,
		Nickname:  snapshot.Nickname,
		Region:    string(snapshot.Region),
		ClanTag:   snapshot.ClanTag,
		All: CategoryObject{
			CountersObject: countersToObject(snapshot.All.BattleCounters),
			DerivedObject:  derivedToObject(snapshot.All.DerivedStats),
		},
		Rating:       rating,
		Tanks:        tanks,
		Achievements: achievements,
	}
}

func sessionToObject(result *domain.SessionDiffResult) *SessionObject {
	tanks := make([]TankSessionObject, 0, len(result.Tanks))
	for _, entry := range result.Tanks {
		tanks = append(tanks, TankSessionObject{
			TankID: entry.TankID,
			Info: TankInfoObject{
				Name:   entry.Info.Name,
				Tier:   entry.Info.Tier,
				Type:   string(entry.Info.Type),
				Nation: entry.Info.Nation,
				Known:  entry.Info.Known,
			},
			BattleDelta: entry.BattleDelta,
			Diff:        deltaToObject(entry.Diff),
			Session:     derivedToObject(entry.Session.DerivedStats),
		})
	}

	return &SessionObject{
		AccountID:     result.AccountID,
		Region:        string(result.Region),
		Start:         result.Start,
		End:           result.End,
		MainDiff:      deltaToObject(result.MainDiff),
		MainSession:   derivedToObject(result.MainSession.DerivedStats),
		RatingDiff:    deltaToObject(result.RatingDiff),
		RatingSession: derivedToObject(result.RatingSession.DerivedStats),
		Tanks:         tanks,
	}
}

func SnapshotToResponseData(snapshot *domain.PlayerSnapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("snapshot is nil")
	}

	data, err := json.Marshal(SnapshotResponse{
		Success:  true,
		Snapshot: snapshotToObject(snapshot),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot response: %w", err)
	}
	return data, nil
}

func SessionToResponseData(result *domain.SessionDiffResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("session is nil")
	}

	data, err := json.Marshal(SessionResponse{
		Success: true,
		Session: sessionToObject(result),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session response: %w", err)
	}
	return data, nil
}

func ErrorResponseData(cause string) ([]byte, error) {
	data, err := json.Marshal(ErrorResponse{
		Success: false,
		Cause:   cause,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal error response: %w", err)
	}
	return data, nil
}
