package types

import (
	"github.com/DoyleJ11/deathmatch-backend/internal/engine"
)

type ClientMessage struct {
	Type        string `json:"type"`
	Team        string `json:"team,omitempty"`
	KillLimit   *int   `json:"kill_limit,omitempty"`
	TimeLimit   *int   `json:"time_limit,omitempty"`
	WeaponIndex *int   `json:"weapon_index,omitempty"`
	KillerID    string `json:"killer_id,omitempty"`
}

func (m ClientMessage) Patch() engine.SettingsPatch {
	return engine.SettingsPatch{
		KillLimit:   m.KillLimit,
		TimeLimit:   m.TimeLimit,
		WeaponIndex: m.WeaponIndex,
	}
}

type ServerMessage struct {
	Type       string             `json:"type"` // see pkg/types
	OK         bool               `json:"ok"`
	Reason     string             `json:"reason,omitempty"`
	PlayerID   string             `json:"player_id,omitempty"`
	Team       engine.Team        `json:"team,omitempty"`
	Host       string             `json:"host,omitempty"`
	Started    bool               `json:"started,omitempty"`
	Settings   *engine.Settings   `json:"settings,omitempty"`
	Scoreboard *engine.Scoreboard `json:"scoreboard,omitempty"`
	Spawn      *engine.SpawnPoint `json:"spawn,omitempty"`
	Weapon     *engine.Weapon     `json:"weapon,omitempty"`
	Remaining  *int               `json:"remaining_seconds,omitempty"`
	Winner     string             `json:"winning_team,omitempty"`
}
