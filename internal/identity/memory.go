package identity

import (
	"context"
	"sync"
	"time"
)

// Record is what a registry knows about one client id.
type Record struct {
	ClientID  string    `json:"client_id"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{records: make(map[string]Record)}
}

func (m *MemoryRegistry) Save(_ context.Context, clientID string, seenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[clientID] = touch(m.records[clientID], clientID, seenAt)
	return nil
}

func (m *MemoryRegistry) Get(clientID string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[clientID]
	return r, ok
}

func (m *MemoryRegistry) Close() error { return nil }

func touch(r Record, clientID string, seenAt time.Time) Record {
	if r.ClientID == "" {
		r = Record{ClientID: clientID, FirstSeen: seenAt}
	}
	r.LastSeen = seenAt
	return r
}
