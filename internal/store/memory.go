package store

import (
	"context"
	"sort"
	"sync"

	"github.com/DoyleJ11/deathmatch-backend/internal/ports"
)

// InMemoryStore is used when no database is configured. Contents are lost on
// restart.
type InMemoryStore struct {
	lock    sync.RWMutex
	wallets map[string]int64
	entries []RewardEntry
	matches []MatchRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		wallets: make(map[string]int64),
	}
}

func (s *InMemoryStore) PayReward(_ context.Context, playerID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.wallets[playerID] += amount
	s.entries = append(s.entries, RewardEntry{
		ID:       uint(len(s.entries) + 1),
		PlayerID: playerID,
		Amount:   amount,
	})
	return nil
}

func (s *InMemoryStore) Balance(_ context.Context, playerID string) (int64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.wallets[playerID], nil
}

func (s *InMemoryStore) RecordMatch(_ context.Context, rec ports.MatchRecord) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.matches = append(s.matches, newMatchRecord(rec))
	return nil
}

func (s *InMemoryStore) Matches(_ context.Context, limit int) ([]MatchRecord, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]MatchRecord, len(s.matches))
	copy(out, s.matches)
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
