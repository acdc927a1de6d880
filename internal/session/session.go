// Package session keeps the per-client state of the concierge: its client id,
// conversation, active view and the last detail lookup.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"visitrome-concierge/internal/conversation"
	"visitrome-concierge/internal/detail"
	"visitrome-concierge/internal/identity"
	"visitrome-concierge/internal/logger"
	"visitrome-concierge/internal/view"
)

const DefaultTTL = 2 * time.Hour

// Session is the state of one browser: its client id, conversation, active
// view and the latest detail lookup.
type Session struct {
	Conversation *conversation.Store
	View         *view.Router

	mu       sync.Mutex
	clientID string
	detail   *detail.State
}

// New returns an empty session bound to clientID, which may be "" until the
// first message issues one.
func New(clientID string) *Session {
	return &Session{
		clientID:     clientID,
		Conversation: conversation.NewStore(),
		View:         view.NewRouter(),
	}
}

// ClientID returns the id the upstream knows this browser by.
func (s *Session) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientID
}

// AdoptClientID stores id when the session has none yet and returns the id
// the session ends up with. A session keeps its first id for good.
func (s *Session) AdoptClientID(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(s.clientID) == "" {
		s.clientID = id
	}
	return s.clientID
}

// SetDetail records the outcome of the latest detail lookup.
func (s *Session) SetDetail(st detail.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detail = &st
}

// Detail returns the stored lookup for the view currently shown, or nil when
// the stored one belongs to another selection.
func (s *Session) Detail() *detail.State {
	cur := s.View.Current()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == nil || s.detail.Kind != cur.View || s.detail.ID != cur.SelectedID() {
		return nil
	}
	st := *s.detail
	return &st
}

// Back returns to the chat and drops the detail lookup.
func (s *Session) Back() view.State {
	s.mu.Lock()
	s.detail = nil
	s.mu.Unlock()
	return s.View.Back()
}

// Registry holds live sessions keyed by the client id they were created with.
// Idle sessions expire after the configured TTL.
type Registry struct {
	cache    *cache.Cache
	identity *identity.Manager
	log      *logger.Logger
}

func NewRegistry(ids *identity.Manager, ttl time.Duration, log *logger.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ids == nil {
		ids = identity.NewManager(nil, log)
	}
	if log == nil {
		log = logger.Nop()
	}
	r := &Registry{
		cache:    cache.New(ttl, ttl/4),
		identity: ids,
		log:      log.With("service", "SessionRegistry"),
	}
	r.cache.OnEvicted(func(id string, _ interface{}) {
		r.log.Debug("session expired", "client_id", id)
	})
	return r
}

// Start always issues a new client id and an empty session for it.
func (r *Registry) Start(ctx context.Context) *Session {
	id := r.identity.Refresh(ctx)
	s := New(id)
	r.cache.Set(id, s, cache.DefaultExpiration)
	r.log.Info("session started", "client_id", id)
	return s
}

// Resolve returns the live session for id. An unknown id gets a fresh
// session bound to it; an empty id gets a new one via Start.
func (r *Registry) Resolve(ctx context.Context, id string) *Session {
	id = strings.TrimSpace(id)
	if id == "" {
		return r.Start(ctx)
	}
	if s, ok := r.Get(id); ok {
		r.Touch(s)
		return s
	}
	s := New(id)
	if err := r.cache.Add(id, s, cache.DefaultExpiration); err != nil {
		// lost a race with a concurrent Resolve for the same id
		if existing, ok := r.Get(id); ok {
			return existing
		}
		r.cache.Set(id, s, cache.DefaultExpiration)
	}
	r.identity.Persist(ctx, id)
	r.log.Info("session restored", "client_id", id)
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*Session), true
	}
	return nil, false
}

// Touch pushes the session's expiry out by another TTL.
func (r *Registry) Touch(s *Session) {
	r.cache.Set(s.ClientID(), s, cache.DefaultExpiration)
}

func (r *Registry) Delete(id string) {
	r.cache.Delete(id)
}

func (r *Registry) Len() int {
	return r.cache.ItemCount()
}
