// Package ports declares the collaborators the lobby and match state machines
// call into. Adapters live in their own packages.
package ports

import (
	"context"
	"time"

	"github.com/DoyleJ11/deathmatch-backend/internal/engine"
	"github.com/DoyleJ11/deathmatch-backend/internal/types"
)

// Notifier delivers server messages to connected clients. Implementations
// must not block the caller on slow clients.
type Notifier interface {
	Send(clientID string, msg types.ServerMessage)
	Broadcast(clientIDs []string, msg types.ServerMessage)
}

// Rewarder pays currency to a player.
type Rewarder interface {
	PayReward(ctx context.Context, playerID string, amount int64) error
}

// Partitioner moves a player into an isolated world partition. An empty
// token returns the player to the shared world.
type Partitioner interface {
	SetPartition(ctx context.Context, playerID string, token string) error
}

// MatchRecord is the history entry written after every settlement.
type MatchRecord struct {
	Token     string
	Reason    string
	Winner    engine.Team
	Board     engine.Scoreboard
	StartedAt time.Time
	EndedAt   time.Time
}

type MatchRecorder interface {
	RecordMatch(ctx context.Context, rec MatchRecord) error
}

// Presentation drives client-local effects. It is implemented on the client.
type Presentation interface {
	EquipWeapon(weapon engine.Weapon)
	Teleport(point engine.SpawnPoint)
	SetInvincible(on bool)
	RestoreDefaults()
}
