package domain

import "fmt"

type TankType string

const (
	TankTypeLight     TankType = "lightTank"
	TankTypeMedium    TankType = "mediumTank"
	TankTypeHeavy     TankType = "heavyTank"
	TankTypeDestroyer TankType = "AT-SPG"
	TankTypeUnknown   TankType = "unknown"
)

// TankInfo is static vehicle metadata from the encyclopedia
type TankInfo struct {
	TankID int
	Name   string
	Tier   int
	Type   TankType
	Nation string
	Known  bool
}

func UnknownTank(tankID int) TankInfo {
	return TankInfo{
		TankID: tankID,
		Name:   fmt.Sprintf("Unknown tank %d", tankID),
		Tier:   0,
		Type:   TankTypeUnknown,
		Nation: "unknown",
		Known:  false,
	}
}

func ParseTankType(raw string) TankType {
	switch TankType(raw) {
	case TankTypeLight, TankTypeMedium, TankTypeHeavy, TankTypeDestroyer:
		return TankType(raw)
	}
	return TankTypeUnknown
}
