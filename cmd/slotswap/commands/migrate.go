package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	mongomigration "slotswap/internal/migrations/mongo"
	pgmigration "slotswap/internal/migrations/postgres"
	"slotswap/pkg/config"

	"github.com/spf13/cobra"
)

const migrationTimeout = 120 * time.Second

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create collections, tables and indexes for the configured storage backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(ServiceName + "-migrate")
			cfg.SetStorage()
			defer cfg.GracefulShutdown()

			ctx, cancel := context.WithTimeout(cmd.Context(), migrationTimeout)
			defer cancel()

			if err := runMigrations(ctx, cfg); err != nil {
				cfg.Log.Error("Migration failed", "backend", cfg.StorageBackend, "error", err)
				return err
			}
			cfg.Log.Info("Migration completed successfully", "backend", cfg.StorageBackend)
			return nil
		},
	}
}

// runMigrations is a no-op for the memory backend.
func runMigrations(ctx context.Context, cfg *config.Config) error {
	switch cfg.StorageBackend {
	case config.StorageMongo:
		return mongomigration.RunMigration(ctx, cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.Log)
	case config.StoragePostgres:
		return pgmigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log)
	case config.StorageMemory:
		cfg.Log.Info("Memory backend needs no migration")
		return nil
	}
	return fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

func loadConfig(serviceName string) *config.Config {
	if dotEnvFile != "" {
		_ = os.Setenv(config.EnvDotEnvFile, dotEnvFile)
	}
	return config.Load(serviceName)
}
