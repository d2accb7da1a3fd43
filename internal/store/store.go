package store

import (
	"context"
	"errors"

	"github.com/DoyleJ11/deathmatch-backend/internal/ports"
)

var ErrInvalidAmount = errors.New("reward amount must be positive")

// Store is the reward ledger and match history.
type Store interface {
	ports.Rewarder
	ports.MatchRecorder
	Balance(ctx context.Context, playerID string) (int64, error)
	Matches(ctx context.Context, limit int) ([]MatchRecord, error)
	Close() error
}
