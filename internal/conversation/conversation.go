package conversation

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"visitrome-concierge/internal/relevance"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a consistent copy of a conversation.
type Snapshot struct {
	Messages []Message
	Loading  bool
	Relevant *relevance.Data
}

// Store is the append-only message log of one client plus the transient
// loading flag and the relevant-data panel of the latest reply.
type Store struct {
	mu       sync.RWMutex
	messages []Message
	loading  bool
	relevant *relevance.Data
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// Append records a new message and returns it.
func (s *Store) Append(role Role, content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now()
	msg := Message{ID: newMessageID(ts), Role: role, Content: content, Timestamp: ts}
	s.messages = append(s.messages, msg)
	return msg
}

func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetRelevant replaces the relevant-data panel; nil hides it.
func (s *Store) SetRelevant(d *relevance.Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relevant = d
}

func (s *Store) Relevant() *relevance.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.relevant
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{Messages: msgs, Loading: s.loading, Relevant: s.relevant}
}

// newMessageID is only collision resistant enough to key a rendered list.
func newMessageID(ts time.Time) string {
	return fmt.Sprintf("%d_%s", ts.UnixMilli(), strconv.FormatUint(rand.Uint64(), 36))
}
