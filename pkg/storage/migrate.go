package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/AmiraaaF/Projet-Rust/pkg/observability"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var migrationsFS embed.FS

// goose keeps its base FS, dialect and logger in package globals
var gooseMu sync.Mutex

// gooseLogger sends goose output to the service logger
type gooseLogger struct {
	log *observability.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at error level; the migration call still returns its error.
func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// useMigrationLogger points goose at the context logger, or silences it when
// the context carries none. Callers must hold gooseMu.
func useMigrationLogger(ctx context.Context) func() {
	if log, ok := observability.LoggerFrom(ctx); ok {
		goose.SetLogger(gooseLogger{log: log.WithField("component", "migrate")})
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	return func() { goose.SetLogger(goose.NopLogger()) }
}

// Migrate applies all pending migrations for the dialect
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	defer useMigrationLogger(ctx)()

	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, migrationDir(dialect)); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the current goose schema version
func SchemaVersion(ctx context.Context, db *sql.DB, dialect Dialect) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	defer useMigrationLogger(ctx)()

	if err := goose.SetDialect(string(dialect)); err != nil {
		return 0, fmt.Errorf("failed to set migration dialect: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

func migrationDir(dialect Dialect) string {
	return path.Join("migrations", string(dialect))
}
