package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/amm-core/internal/database"
	"github.com/jmylchreest/amm-core/internal/database/migrations"
	"github.com/jmylchreest/amm-core/internal/observability"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Inspect and roll back database migrations",
	Long: `Manage the schema_migrations table tracked by internal/database/migrations.
"amm serve"/"amm run" already apply pending migrations on startup via
Migrator.Up; this command exists for the out-of-band cases: checking what
has been applied, and rolling back the most recent migration.`,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List every migration and whether it has been applied",
	RunE:  runMigrateStatus,
}

var migratePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List migrations that have not yet been applied",
	RunE:  runMigratePending,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recently applied migration",
	RunE:  runMigrateDown,
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd, migratePendingCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}

// connectForMigration opens a database connection and registers every known
// migration without applying any of them, the way Migrator.Up's callers do
// via newPipelineApp but stopping short of the Up() call itself.
func connectForMigration() (*database.DB, *migrations.Migrator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, newExitError(exitConfigurationError, err)
	}

	logger := observability.NewLogger(cfg.Logging)
	observability.SetDefault(logger)

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return nil, nil, newExitError(exitGenericFailure, fmt.Errorf("connecting to database: %w", err))
	}

	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	return db, migrator, nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	db, migrator, err := connectForMigration()
	if err != nil {
		return err
	}
	defer db.Close()

	statuses, err := migrator.Status(context.Background())
	if err != nil {
		return newExitError(exitGenericFailure, fmt.Errorf("getting migration status: %w", err))
	}

	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied at " + s.AppliedAt.Format("2006-01-02T15:04:05Z")
		}
		fmt.Printf("  %-6s %-32s %s\n", s.Version, s.Description, state)
	}
	return nil
}

func runMigratePending(cmd *cobra.Command, args []string) error {
	db, migrator, err := connectForMigration()
	if err != nil {
		return err
	}
	defer db.Close()

	pending, err := migrator.Pending(context.Background())
	if err != nil {
		return newExitError(exitGenericFailure, fmt.Errorf("getting pending migrations: %w", err))
	}

	if len(pending) == 0 {
		fmt.Println("no pending migrations")
		return nil
	}
	for _, m := range pending {
		fmt.Printf("  %-6s %s\n", m.Version, m.Description)
	}
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	db, migrator, err := connectForMigration()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrator.Down(context.Background()); err != nil {
		return newExitError(exitGenericFailure, fmt.Errorf("rolling back migration: %w", err))
	}
	return nil
}
