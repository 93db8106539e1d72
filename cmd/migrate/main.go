package main

import (
	"fmt"
	"os"

	"notebook-sync-be/internal/config"
	"notebook-sync-be/internal/model"
	"notebook-sync-be/internal/pkg/logger"
	"notebook-sync-be/internal/repository/unitofwork"
	"notebook-sync-be/internal/service"
	"notebook-sync-be/pkg/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database schema and legacy data migrations",
	Long: `Manage the notebook database.

Available subcommands:
  schema  - Create or update tables for every model
  legacy  - Copy legacy notes into notebooks and rows
  cleanup - Delete every legacy note (requires --yes)`,
	SilenceUsage: true,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Run AutoMigrate for every model",
	RunE:  runSchema,
}

var legacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Migrate legacy notes to notebooks and rows",
	Long: `Copy every legacy note that has an owner into the notebooks and rows
tables. Each note is migrated in its own transaction and the run stops at
the first failure. Running it again overwrites the migrated notebooks.`,
	RunE: runLegacy,
}

var cleanupConfirmed bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete every legacy note",
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupConfirmed, "yes", false, "confirm deleting all legacy notes")
	rootCmd.AddCommand(schemaCmd, legacyCmd, cleanupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Connection == "" {
		return nil, fmt.Errorf("DB_CONNECTION_STRING is not set")
	}
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func newMigrationService() (service.IMigrationService, logger.ILogger, error) {
	cfg := config.Load()
	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	return service.NewMigrationService(unitofwork.NewRepositoryFactory(db), log), log, nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	db, err := openDB(config.Load())
	if err != nil {
		return err
	}

	models := []interface{}{
		&model.User{},
		&model.UserProvider{},
		&model.UserSession{},
		&model.Notebook{},
		&model.Row{},
		&model.LegacyNote{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Schema migrated (%d tables)\n", len(models))
	return nil
}

func runLegacy(cmd *cobra.Command, args []string) error {
	svc, log, err := newMigrationService()
	if err != nil {
		return err
	}
	defer log.Sync()

	migrated, err := svc.MigrateToNewStructure(cmd.Context())
	if err != nil {
		return err
	}

	for _, m := range migrated {
		fmt.Fprintf(cmd.OutOrStdout(), "migrated note %s (user %s)\n", m.NoteId, m.UserId)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d notes migrated\n", len(migrated))
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	if !cleanupConfirmed {
		return fmt.Errorf("refusing to delete legacy notes without --yes")
	}

	svc, log, err := newMigrationService()
	if err != nil {
		return err
	}
	defer log.Sync()

	deleted, err := svc.CleanupOldStructure(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d legacy notes deleted\n", deleted)
	return nil
}
