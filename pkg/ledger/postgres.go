package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/billingsync/pkg/billing"
	"github.com/dmitrymomot/billingsync/pkg/logger"
	"github.com/dmitrymomot/billingsync/pkg/pg"
)

// PostgresStore keeps the ledger in PostgreSQL. It owns the pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, log *slog.Logger) *PostgresStore {
	if log == nil {
		log = logger.Discard()
	}
	return &PostgresStore{pool: pool, log: log}
}

const (
	pgCustomersByUserID = `SELECT user_id, customer_id, created_at FROM customers
		WHERE user_id = $1 ORDER BY created_at, customer_id`
	pgCustomersByProviderID = `SELECT user_id, customer_id, created_at FROM customers
		WHERE customer_id = $1 ORDER BY created_at`
	pgInsertCustomer     = `INSERT INTO customers (user_id, customer_id, created_at) VALUES ($1, $2, $3)`
	pgInsertSubscription = `INSERT INTO subscriptions (id, user_id, created_at) VALUES ($1, $2, $3)`
	pgDeleteSubscription = `DELETE FROM subscriptions WHERE id = $1`
	pgSubscriptionByID   = `SELECT id, user_id, created_at FROM subscriptions WHERE id = $1`
)

func (s *PostgresStore) CustomersByUserID(ctx context.Context, userID string) ([]billing.CustomerRecord, error) {
	return s.queryCustomers(ctx, pgCustomersByUserID, userID)
}

func (s *PostgresStore) CustomersByProviderID(ctx context.Context, providerCustomerID string) ([]billing.CustomerRecord, error) {
	return s.queryCustomers(ctx, pgCustomersByProviderID, providerCustomerID)
}

func (s *PostgresStore) queryCustomers(ctx context.Context, query string, arg string) ([]billing.CustomerRecord, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (billing.CustomerRecord, error) {
		var c billing.CustomerRecord
		err := row.Scan(&c.UserID, &c.ProviderCustomerID, &c.CreatedAt)
		return c, err
	})
}

func (s *PostgresStore) InsertCustomer(ctx context.Context, rec billing.CustomerRecord) error {
	_, err := s.pool.Exec(ctx, pgInsertCustomer, rec.UserID, rec.ProviderCustomerID, createdAt(rec.CreatedAt))
	if pg.IsDuplicateKeyError(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

func (s *PostgresStore) InsertSubscription(ctx context.Context, rec billing.SubscriptionRecord) error {
	_, err := s.pool.Exec(ctx, pgInsertSubscription, rec.ID, rec.UserID, createdAt(rec.CreatedAt))
	if pg.IsDuplicateKeyError(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

func (s *PostgresStore) DeleteSubscription(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, pgDeleteSubscription, id)
	return err
}

func (s *PostgresStore) SubscriptionByID(ctx context.Context, id string) (*billing.SubscriptionRecord, error) {
	var rec billing.SubscriptionRecord
	err := s.pool.QueryRow(ctx, pgSubscriptionByID, id).Scan(&rec.ID, &rec.UserID, &rec.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := pg.Migrate(ctx, s.pool, migrations, postgresMigrations, s.log); err != nil {
		return errors.Join(ErrMigrate, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return pg.Healthcheck(s.pool)(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
