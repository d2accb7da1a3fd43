package partition

import (
	"context"
	"sort"
	"sync"
)

// SharedWorld is the token of the default partition every player starts in.
const SharedWorld = ""

// InMemoryRegistry tracks which partition each player is in.
// It is safe for concurrent use.
type InMemoryRegistry struct {
	lock    sync.RWMutex
	buckets map[string]string
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		buckets: make(map[string]string),
	}
}

func (r *InMemoryRegistry) SetPartition(_ context.Context, playerID string, token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if token == SharedWorld {
		delete(r.buckets, playerID)
		return nil
	}
	r.buckets[playerID] = token
	return nil
}

// PartitionOf returns the player's token, SharedWorld if none.
func (r *InMemoryRegistry) PartitionOf(playerID string) string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.buckets[playerID]
}

// Members lists the players isolated under token.
func (r *InMemoryRegistry) Members(token string) []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var ids []string
	for id, t := range r.buckets {
		if t == token {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
