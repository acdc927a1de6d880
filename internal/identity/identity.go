// Package identity issues the per-browser client id that the upstream webhook
// uses to correlate chat turns, and records issued ids best-effort.
package identity

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"visitrome-concierge/internal/logger"
)

// CookieName is the per-browser key that holds the client id.
const CookieName = "visitrome_client_id"

var newUUID = uuid.NewRandom

// NewClientID returns a random UUID, or a time-plus-random fallback when the
// random source is unavailable. Fallback ids are not guaranteed unique.
func NewClientID() string {
	if id, err := newUUID(); err == nil {
		return id.String()
	}
	return fallbackID(time.Now())
}

func fallbackID(now time.Time) string {
	suffix := strconv.FormatUint(rand.Uint64(), 36)
	for len(suffix) < 8 {
		suffix = "0" + suffix
	}
	return fmt.Sprintf("client_%d_%s", now.UnixMilli(), suffix[:8])
}

// Registry records client ids that were handed out.
type Registry interface {
	Save(ctx context.Context, clientID string, seenAt time.Time) error
	Close() error
}

// Manager creates client ids and persists them without ever failing the
// caller: a registry error only costs analytics correlation.
type Manager struct {
	registry Registry
	log      *logger.Logger
	now      func() time.Time
}

func NewManager(registry Registry, log *logger.Logger) *Manager {
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{registry: registry, log: log.With("service", "ClientIdentity"), now: time.Now}
}

// Persist writes id to the registry; failures are logged and swallowed.
func (m *Manager) Persist(ctx context.Context, id string) {
	if err := m.registry.Save(ctx, id, m.now()); err != nil {
		m.log.Warn("unable to persist client id", "client_id", id, "error", err)
	}
}

// Refresh creates and persists a brand new client id.
func (m *Manager) Refresh(ctx context.Context) string {
	id := NewClientID()
	m.Persist(ctx, id)
	return id
}

// Ensure returns current when it is set, otherwise a freshly issued id.
func (m *Manager) Ensure(ctx context.Context, current string) string {
	if strings.TrimSpace(current) != "" {
		return current
	}
	m.log.Debug("client id missing, issuing a new one")
	return m.Refresh(ctx)
}

func (m *Manager) Close() error {
	return m.registry.Close()
}
