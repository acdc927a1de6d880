package identity

import (
	"context"
	"fmt"
	"time"

	"visitrome-concierge/internal/db"
)

// PostgresRegistry stores issued client ids in the client_ids table.
type PostgresRegistry struct {
	db *db.DB
}

func NewPostgresRegistry(database *db.DB) *PostgresRegistry {
	return &PostgresRegistry{db: database}
}

const upsertClientIDSQL = `
	INSERT INTO client_ids (client_id, first_seen_at, last_seen_at)
	VALUES ($1, $2, $2)
	ON CONFLICT (client_id)
	DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at
`

func (p *PostgresRegistry) Save(ctx context.Context, clientID string, seenAt time.Time) error {
	if clientID == "" {
		return fmt.Errorf("client id is required")
	}
	if _, err := p.db.ExecContext(ctx, upsertClientIDSQL, clientID, seenAt); err != nil {
		return fmt.Errorf("failed to save client id: %w", err)
	}
	return nil
}

func (p *PostgresRegistry) Close() error {
	return p.db.Close()
}
