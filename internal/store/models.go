package store

import (
	"time"

	"github.com/DoyleJ11/deathmatch-backend/internal/engine"
	"github.com/DoyleJ11/deathmatch-backend/internal/ports"
	"github.com/google/uuid"
)

type Wallet struct {
	PlayerID  string `gorm:"primaryKey"`
	Balance   int64
	UpdatedAt time.Time
}

type RewardEntry struct {
	ID        uint   `gorm:"primaryKey"`
	PlayerID  string `gorm:"index"`
	Amount    int64
	CreatedAt time.Time
}

type MatchRecord struct {
	ID        string `gorm:"primaryKey"`
	Token     string `gorm:"index"`
	Reason    string
	Winner    string
	RedKills  int
	BlueKills int
	Players   []engine.PlayerLine `gorm:"serializer:json"`
	StartedAt time.Time
	EndedAt   time.Time `gorm:"index"`
}

func newMatchRecord(rec ports.MatchRecord) MatchRecord {
	return MatchRecord{
		ID:        uuid.NewString(),
		Token:     rec.Token,
		Reason:    rec.Reason,
		Winner:    string(rec.Winner),
		RedKills:  rec.Board.TeamKills[engine.TeamRed],
		BlueKills: rec.Board.TeamKills[engine.TeamBlue],
		Players:   rec.Board.Players,
		StartedAt: rec.StartedAt,
		EndedAt:   rec.EndedAt,
	}
}
