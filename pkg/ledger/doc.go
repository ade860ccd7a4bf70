// Package ledger provides billing.RecordStore implementations.
//
// PostgresStore (pgx pool) and SQLiteStore (modernc.org/sqlite) share one
// schema, applied with goose from the embedded migrations. MemoryStore keeps
// everything in process and suits development and tests.
//
// customers.user_id is indexed but deliberately not unique: a user with more
// than one customer row is a state the billing package detects and reports,
// so the schema must be able to represent it.
//
// Open builds the store selected by Config.Driver:
//
//	store, err := ledger.Open(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//	if err := store.Migrate(ctx); err != nil {
//		return err
//	}
package ledger
