package identity

import (
	"context"
	"fmt"
	"time"

	"visitrome-concierge/internal/db"
	"visitrome-concierge/internal/logger"
)

// Options selects and configures a registry backend.
type Options struct {
	Backend     string // memory | file | postgres | redis
	FilePath    string
	DatabaseURL string
	RedisAddr   string
	RedisTTL    time.Duration
}

// OpenRegistry builds the registry named by opts.Backend. Postgres schemas are
// migrated before the registry is returned.
func OpenRegistry(ctx context.Context, opts Options, log *logger.Logger) (Registry, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryRegistry(), nil
	case "file":
		if opts.FilePath == "" {
			return nil, fmt.Errorf("file registry needs a path")
		}
		return NewFileRegistry(opts.FilePath), nil
	case "postgres":
		database, err := db.New(ctx, opts.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewPostgresRegistry(database), nil
	case "redis":
		return NewRedisRegistry(ctx, opts.RedisAddr, opts.RedisTTL)
	default:
		return nil, fmt.Errorf("unknown client id store %q", opts.Backend)
	}
}
