package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/billingsync/pkg/logger"
	"github.com/dmitrymomot/billingsync/pkg/pg"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config selects and configures the ledger backend.
type Config struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLiteDSN   string `env:"SQLITE_DSN" envDefault:"file:billingsync.db"`
	AutoMigrate bool   `env:"STORAGE_AUTO_MIGRATE" envDefault:"true"`

	Postgres pg.Config
}

// Open builds the store for cfg.Driver. Migrations are not applied; call
// Store.Migrate.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (Store, error) {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With(logger.Component("ledger"), slog.String("driver", cfg.Driver))

	switch strings.ToLower(cfg.Driver) {
	case DriverPostgres:
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pool, log), nil
	case DriverSQLite:
		return NewSQLiteStore(cfg.SQLiteDSN, log)
	case DriverMemory:
		log.WarnContext(ctx, "using in-memory ledger, records are lost on restart")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
