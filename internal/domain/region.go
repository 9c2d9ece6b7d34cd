package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type Region string

const (
	RegionRU   Region = "ru"
	RegionEU   Region = "eu"
	RegionCOM  Region = "com"
	RegionASIA Region = "asia"
)

// ParseRegion accepts the known region names. "na" is an alias for "com".
func ParseRegion(raw string) (Region, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ru":
		return RegionRU, nil
	case "eu":
		return RegionEU, nil
	case "com", "na":
		return RegionCOM, nil
	case "asia":
		return RegionASIA, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRegion, raw)
}

// PlayerRef identifies a player either by account id or by nickname
type PlayerRef struct {
	AccountID int
	Nickname  string
}

func (r PlayerRef) HasAccountID() bool {
	return r.AccountID > 0
}

func (r PlayerRef) String() string {
	if r.HasAccountID() {
		return strconv.Itoa(r.AccountID)
	}
	return r.Nickname
}

// ParsePlayerRef treats an all-digit string as an account id and anything else as a nickname
func ParsePlayerRef(raw string) (PlayerRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PlayerRef{}, fmt.Errorf("%w: empty", ErrInvalidName)
	}

	if id, err := strconv.Atoi(raw); err == nil {
		if id <= 0 {
			return PlayerRef{}, fmt.Errorf("%w: account id must be positive", ErrInvalidName)
		}
		return PlayerRef{AccountID: id}, nil
	}

	return PlayerRef{Nickname: raw}, nil
}
