// Package view mirrors the server's lobby and match state on the client.
package view

import (
	"sync"

	"github.com/DoyleJ11/deathmatch-backend/internal/engine"
	"github.com/DoyleJ11/deathmatch-backend/internal/ports"
	"github.com/DoyleJ11/deathmatch-backend/internal/types"
	wire "github.com/DoyleJ11/deathmatch-backend/pkg/types"
	"go.uber.org/zap"
)

// State is what the server last told this client.
type State struct {
	PlayerID   string
	InLobby    bool
	Host       string
	Team       engine.Team
	Started    bool
	Settings   engine.Settings
	Scoreboard engine.Scoreboard
	Remaining  int
	LastResult string
}

// ClientMatchView is a last-write-wins copy of State. Applying the same
// message twice leaves it unchanged.
type ClientMatchView struct {
	mu sync.RWMutex
	State

	present ports.Presentation
	logger  *zap.Logger
}

func New(present ports.Presentation, logger *zap.Logger) *ClientMatchView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientMatchView{present: present, logger: logger.Named("view")}
}

// Apply folds one server message into the view and runs any local effects.
func (v *ClientMatchView) Apply(msg types.ServerMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch msg.Type {
	case wire.Welcome:
		v.PlayerID = msg.PlayerID

	case wire.LobbyCreated, wire.JoinedLobby:
		if msg.OK {
			v.InLobby = true
			if msg.Team != engine.TeamNone {
				v.Team = msg.Team
			}
		}

	case wire.LobbyRefreshed:
		v.InLobby = true
		v.Host = msg.Host
		v.Started = msg.Started
		if msg.Settings != nil {
			v.Settings = *msg.Settings
		}
		if msg.Scoreboard != nil {
			v.Scoreboard = *msg.Scoreboard
			v.syncTeam()
		}

	case wire.MatchStarted:
		v.Started = true
		v.LastResult = ""
		if msg.Team != engine.TeamNone {
			v.Team = msg.Team
		}
		if msg.Settings != nil {
			v.Settings = *msg.Settings
			v.Remaining = msg.Settings.TimeLimit
		}
		if v.present != nil {
			if msg.Weapon != nil {
				v.present.EquipWeapon(*msg.Weapon)
			}
			if msg.Spawn != nil {
				v.present.Teleport(*msg.Spawn)
			}
			v.present.SetInvincible(false)
		}

	case wire.ScoreboardUpdated:
		if msg.Scoreboard != nil {
			v.Scoreboard = *msg.Scoreboard
		}

	case wire.TimerUpdated:
		if msg.Remaining != nil {
			v.Remaining = *msg.Remaining
		}

	case wire.MatchEnded:
		if msg.Scoreboard != nil {
			v.Scoreboard = *msg.Scoreboard
		}
		v.LastResult = msg.Winner
		v.endMatch()

	case wire.LobbyClosed, wire.LeftLobby:
		v.endMatch()
		v.InLobby = false
		v.Host = ""
		v.Team = engine.TeamNone
		v.Scoreboard = engine.Scoreboard{}

	case wire.Error, wire.Notice, wire.TeamSwitchResult:
		if msg.Reason != "" {
			v.logger.Info("server says", zap.String("type", msg.Type), zap.String("reason", msg.Reason))
		}
	}
}

func (v *ClientMatchView) endMatch() {
	wasStarted := v.Started
	v.Started = false
	v.Remaining = 0
	if wasStarted && v.present != nil {
		v.present.RestoreDefaults()
	}
}

func (v *ClientMatchView) syncTeam() {
	for _, p := range v.Scoreboard.Players {
		if p.ID == v.PlayerID {
			v.Team = p.Team
			return
		}
	}
}

// Snapshot returns a copy safe to read from another goroutine.
func (v *ClientMatchView) Snapshot() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.State
}
