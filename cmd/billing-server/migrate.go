package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AmiraaaF/Projet-Rust/pkg/config"
	"github.com/AmiraaaF/Projet-Rust/pkg/observability"
	"github.com/AmiraaaF/Projet-Rust/pkg/storage"
	"github.com/spf13/cobra"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply the billing schema or report the current schema version.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), *configPath, func(ctx context.Context, db *sql.DB, dialect storage.Dialect, log *observability.Logger) error {
					log.WithField("driver", string(dialect)).Info("Running up migrations")
					if err := storage.Migrate(ctx, db, dialect); err != nil {
						return err
					}
					log.Info("Migrations completed successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), *configPath, func(ctx context.Context, db *sql.DB, dialect storage.Dialect, _ *observability.Logger) error {
					version, err := storage.SchemaVersion(ctx, db, dialect)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Driver:          %s\n", dialect)
					fmt.Fprintf(cmd.OutOrStdout(), "Current Version: %d\n", version)
					return nil
				})
			},
		},
	)

	return cmd
}

func withDatabase(ctx context.Context, configPath string, fn func(context.Context, *sql.DB, storage.Dialect, *observability.Logger) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	ctx = observability.WithLogger(ctx, log)

	dialect, err := storage.ParseDialect(cfg.Storage.Driver)
	if err != nil {
		return err
	}
	db, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := fn(ctx, db, dialect, log); err != nil {
		log.WithError(err).Error("Migration command failed")
		return err
	}
	return nil
}
