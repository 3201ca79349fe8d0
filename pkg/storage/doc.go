// Package storage opens and prepares the relational store and the Redis client
// used by the billing service.
//
// # Drivers
//
// Two database/sql drivers are supported:
//
//   - postgres (github.com/lib/pq) for deployments
//   - sqlite3 (github.com/mattn/go-sqlite3) for local development and tests
//
// Queries are written once with "?" placeholders and rebound per dialect:
//
//	query := storage.Rebind(storage.DialectPostgres, "SELECT plan FROM subscriptions WHERE user_id = ?")
//	// SELECT plan FROM subscriptions WHERE user_id = $1
//
// # Migrations
//
// Schema migrations are embedded SQL files applied with goose:
//
//	db, err := storage.Open(ctx, cfg)
//	if err := storage.Migrate(ctx, db, storage.Dialect(cfg.Driver)); err != nil {
//		return err
//	}
//
// # Related Packages
//
//   - pkg/billing: Runs its queries against the *sql.DB returned here
//   - pkg/middleware: Uses the Redis client for distributed rate limiting
package storage
