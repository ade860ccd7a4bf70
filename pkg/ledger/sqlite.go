package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrymomot/billingsync/pkg/billing"
	"github.com/dmitrymomot/billingsync/pkg/logger"
)

// SQLiteStore keeps the ledger in a SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLiteStore opens dsn with the pure-Go sqlite driver. ":memory:" is
// mapped to a shared-cache in-memory database.
func NewSQLiteStore(dsn string, log *slog.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.Discard()
	}
	if dsn == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) CustomersByUserID(ctx context.Context, userID string) ([]billing.CustomerRecord, error) {
	return s.queryCustomers(ctx, `SELECT user_id, customer_id, created_at FROM customers
		WHERE user_id = ? ORDER BY created_at, customer_id`, userID)
}

func (s *SQLiteStore) CustomersByProviderID(ctx context.Context, providerCustomerID string) ([]billing.CustomerRecord, error) {
	return s.queryCustomers(ctx, `SELECT user_id, customer_id, created_at FROM customers
		WHERE customer_id = ? ORDER BY created_at`, providerCustomerID)
}

func (s *SQLiteStore) queryCustomers(ctx context.Context, query string, arg string) ([]billing.CustomerRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.CustomerRecord
	for rows.Next() {
		var c billing.CustomerRecord
		if err := rows.Scan(&c.UserID, &c.ProviderCustomerID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertCustomer(ctx context.Context, rec billing.CustomerRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (user_id, customer_id, created_at) VALUES (?, ?, ?)`,
		rec.UserID, rec.ProviderCustomerID, createdAt(rec.CreatedAt))
	return sqliteErr(err)
}

func (s *SQLiteStore) InsertSubscription(ctx context.Context, rec billing.SubscriptionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, user_id, created_at) VALUES (?, ?, ?)`,
		rec.ID, rec.UserID, createdAt(rec.CreatedAt))
	return sqliteErr(err)
}

func (s *SQLiteStore) DeleteSubscription(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) SubscriptionByID(ctx context.Context, id string) (*billing.SubscriptionRecord, error) {
	var rec billing.SubscriptionRecord
	err := s.db.QueryRowContext(ctx, `SELECT id, user_id, created_at FROM subscriptions WHERE id = ?`, id).
		Scan(&rec.ID, &rec.UserID, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, sqliteMigrations)
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}
	for _, r := range results {
		s.log.InfoContext(ctx, "migration applied",
			slog.Int64("version", r.Source.Version),
			logger.Duration(r.Duration),
		)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqliteErr(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
