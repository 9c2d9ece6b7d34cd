package statsprovider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Amund211/blitzstats/internal/domain"
)

type wargamingEnvelope struct {
	Status string          `json:"status"`
	Error  *wargamingError `json:"error,omitempty"`
	Meta   *struct {
		Count int `json:"count"`
	} `json:"meta,omitempty"`
	Data json.RawMessage `json:"data"`
}

type wargamingError struct {
	Field   *string `json:"field,omitempty"`
	Message string  `json:"message"`
	Code    int     `json:"code"`
	Value   *string `json:"value,omitempty"`
}

type wargamingAccount struct {
	AccountID int    `json:"account_id"`
	Nickname  string `json:"nickname"`
}

type wargamingCounters struct {
	Battles              int `json:"battles"`
	Wins                 int `json:"wins"`
	Losses               int `json:"losses"`
	Hits                 int `json:"hits"`
	Shots                int `json:"shots"`
	Frags                int `json:"frags"`
	Spotted              int `json:"spotted"`
	DamageDealt          int `json:"damage_dealt"`
	DamageReceived       int `json:"damage_received"`
	XP                   int `json:"xp"`
	SurvivedBattles      int `json:"survived_battles"`
	DroppedCapturePoints int `json:"dropped_capture_points"`
	CapturePoints        int `json:"capture_points"`
}

type wargamingRatingCounters struct {
	wargamingCounters
	MMRating               float64 `json:"mm_rating"`
	CalibrationBattlesLeft int     `json:"calibration_battles_left"`
}

type wargamingAccountInfo struct {
	AccountID  int    `json:"account_id"`
	Nickname   string `json:"nickname"`
	Statistics struct {
		All    wargamingCounters        `json:"all"`
		Rating *wargamingRatingCounters `json:"rating,omitempty"`
	} `json:"statistics"`
}

type wargamingClanMembership struct {
	ClanID *int `json:"clan_id,omitempty"`
	Clan   *struct {
		Tag  string `json:"tag"`
		Name string `json:"name"`
	} `json:"clan,omitempty"`
}

type wargamingAchievements struct {
	Achievements map[string]int `json:"achievements"`
	MaxSeries    map[string]int `json:"max_series"`
}

type wargamingTankStats struct {
	TankID int               `json:"tank_id"`
	All    wargamingCounters `json:"all"`
}

type wargamingVehicle struct {
	TankID int    `json:"tank_id"`
	Name   string `json:"name"`
	Tier   int    `json:"tier"`
	Type   string `json:"type"`
	Nation string `json:"nation"`
}

func (c wargamingCounters) toDomain() domain.BattleCounters {
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

func checkForWargamingHTTPError(statusCode int, data []byte) error {
	if statusCode == http.StatusOK {
		// Check for HTML response from a proxy in front of the API
		if len(data) > 0 && data[0] == '<' {
			return fmt.Errorf("%w: Wargaming API returned HTML", domain.ErrSourceUnavailable)
		}
		return nil
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: Wargaming API returned status code 429", domain.ErrRateLimitExceeded)
	case 502, 503, 504, 520, 521, 522, 523, 524, 525, 526, 527, 530:
		return fmt.Errorf("%w: Wargaming API returned status code %d (%s)", domain.ErrSourceUnavailable, statusCode, http.StatusText(statusCode))
	}

	return &domain.UpstreamError{
		StatusCode: statusCode,
		Payload:    data,
		Message:    fmt.Sprintf("unsupported status code %d", statusCode),
	}
}

func mapWargamingError(statusCode int, data []byte, apiErr *wargamingError) error {
	message := "missing error message"
	if apiErr != nil {
		message = apiErr.Message
	}

	switch message {
	case "REQUEST_LIMIT_EXCEEDED":
		return fmt.Errorf("%w: %s", domain.ErrRateLimitExceeded, message)
	case "SOURCE_NOT_AVAILABLE":
		return fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, message)
	case "INVALID_SEARCH", "NOT_ENOUGH_SEARCH_LENGTH", "SEARCH_NOT_SPECIFIED", "INVALID_ACCOUNT_ID":
		return fmt.Errorf("%w: %s", domain.ErrInvalidName, message)
	}

	return &domain.UpstreamError{
		StatusCode: statusCode,
		Payload:    data,
		Message:    message,
	}
}

// parseWargamingResponse validates the status code and envelope and returns the raw data field
func parseWargamingResponse(statusCode int, data []byte) (*wargamingEnvelope, error) {
	err := checkForWargamingHTTPError(statusCode, data)
	if err != nil {
		return nil, err
	}

	var envelope wargamingEnvelope
	err = json.Unmarshal(data, &envelope)
	if err != nil {
		return nil, &domain.UpstreamError{
			StatusCode: statusCode,
			Payload:    data,
			Message:    fmt.Sprintf("failed to parse response: %s", err.Error()),
		}
	}

	if envelope.Status != "ok" {
		return nil, mapWargamingError(statusCode, data, envelope.Error)
	}

	return &envelope, nil
}

// decodeKeyedData decodes a data object keyed by a single account id.
// Returns nil when the upstream reports null for the account.
func decodeKeyedData[T any](envelope *wargamingEnvelope, statusCode int, payload []byte, accountID int) (*T, error) {
	var keyed map[string]*T
	err := json.Unmarshal(envelope.Data, &keyed)
	if err != nil {
		return nil, &domain.UpstreamError{
			StatusCode: statusCode,
			Payload:    payload,
			Message:    fmt.Sprintf("failed to parse data: %s", err.Error()),
		}
	}

	return keyed[strconv.Itoa(accountID)], nil
}

func parseAccountList(statusCode int, data []byte) ([]wargamingAccount, error) {
	envelope, err := parseWargamingResponse(statusCode, data)
	if err != nil {
		return nil, err
	}

	var accounts []wargamingAccount
	err = json.Unmarshal(envelope.Data, &accounts)
	if err != nil {
		return nil, &domain.UpstreamError{
			StatusCode: statusCode,
			Payload:    data,
			Message:    fmt.Sprintf("failed to parse account list: %s", err.Error()),
		}
	}
	return accounts, nil
}

func parseAccountInfo(statusCode int, data []byte, accountID int) (*wargamingAccountInfo, error) {
	envelope, err := parseWargamingResponse(statusCode, data)
	if err != nil {
		return nil, err
	}
	return decodeKeyedData[wargamingAccountInfo](envelope, statusCode, data, accountID)
}

func parseClanMembership(statusCode int, data []byte, accountID int) (*wargamingClanMembership, error) {
	envelope, err := parseWargamingResponse(statusCode, data)
	if err != nil {
		return nil, err
	}
	return decodeKeyedData[wargamingClanMembership](envelope, statusCode, data, accountID)
}

func parseAchievements(statusCode int, data []byte, accountID int) (*wargamingAchievements, error) {
	envelope, err := parseWargamingResponse(statusCode, data)
	if err != nil {
		return nil, err
	}
	return decodeKeyedData[wargamingAchievements](envelope, statusCode, data, accountID)
}

func parseTankStats(statusCode int, data []byte, accountID int) ([]wargamingTankStats, error) {
	envelope, err := parseWargamingResponse(statusCode, data)
	if err != nil {
		return nil, err
	}
	tanks, err := decodeKeyedData[[]wargamingTankStats](envelope, statusCode, data, accountID)
	if err != nil {
		return nil, err
	}
	if tanks == nil {
		return nil, nil
	}
	return *tanks, nil
}

func parseVehicles(statusCode int, data []byte) (map[int]domain.TankInfo, error) {
	envelope, err := parseWargamingResponse(statusCode, data)
	if err != nil {
		return nil, err
	}

	var vehicles map[string]*wargamingVehicle
	err = json.Unmarshal(envelope.Data, &vehicles)
	if err != nil {
		return nil, &domain.UpstreamError{
			StatusCode: statusCode,
			Payload:    data,
			Message:    fmt.Sprintf("failed to parse vehicles: %s", err.Error()),
		}
	}

	catalog := make(map[int]domain.TankInfo, len(vehicles))
	for key, vehicle := range vehicles {
		if vehicle == nil {
			continue
		}
		tankID := vehicle.TankID
		if tankID == 0 {
			tankID, err = strconv.Atoi(key)
			if err != nil {
				continue
			}
		}
		catalog[tankID] = domain.TankInfo{
			TankID: tankID,
			Name:   vehicle.Name,
			Tier:   vehicle.Tier,
			Type:   domain.ParseTankType(vehicle.Type),
			Nation: vehicle.Nation,
			Known:  true,
		}
	}
	return catalog, nil
}
