package ledger

import (
	"context"
	"embed"
	"errors"

	"github.com/dmitrymomot/billingsync/pkg/billing"
)

//go:embed migrations
var migrations embed.FS

const (
	postgresMigrations = "migrations/postgres"
	sqliteMigrations   = "migrations/sqlite"
)

var (
	ErrNotFound      = errors.New("ledger: record not found")
	ErrDuplicate     = errors.New("ledger: record already exists")
	ErrUnknownDriver = errors.New("ledger: unknown storage driver")
	ErrMigrate       = errors.New("ledger: failed to apply migrations")
)

// Store is a billing.RecordStore with lifecycle and read helpers.
type Store interface {
	billing.RecordStore

	// SubscriptionByID returns ErrNotFound when no record has id.
	SubscriptionByID(ctx context.Context, id string) (*billing.SubscriptionRecord, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
