package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Open opens and verifies a database connection pool for the configured driver
func Open(ctx context.Context, config Config) (*sql.DB, error) {
	dialect, err := ParseDialect(config.Driver)
	if err != nil {
		return nil, err
	}
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	dsn := config.DatabaseURL
	if dialect == DialectSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", dialect, err)
	}

	configurePool(db, dialect, config)

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect, err)
	}

	return db, nil
}

func configurePool(db *sql.DB, dialect Dialect, config Config) {
	if dialect == DialectSQLite && isMemoryDSN(config.DatabaseURL) {
		// every pooled connection to :memory: would get its own empty database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return
	}

	if config.MaxConns > 0 {
		db.SetMaxOpenConns(config.MaxConns)
	}
	if config.MinConns > 0 {
		db.SetMaxIdleConns(config.MinConns)
	}
	db.SetConnMaxLifetime(config.MaxLifetime)
	db.SetConnMaxIdleTime(config.MaxIdleTime)
}

// SQLiteBusyTimeout is how long a writer waits for the database lock, in milliseconds
const SQLiteBusyTimeout = 5000

// sqliteDSN makes file databases take the write lock when a transaction
// begins and wait for it instead of failing with "database is locked".
// Explicit settings in the DSN win.
func sqliteDSN(dsn string) string {
	if isMemoryDSN(dsn) {
		return dsn
	}

	var params []string
	if !strings.Contains(dsn, "_txlock=") {
		params = append(params, "_txlock=immediate")
	}
	if !strings.Contains(dsn, "_timeout=") {
		params = append(params, fmt.Sprintf("_busy_timeout=%d", SQLiteBusyTimeout))
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
