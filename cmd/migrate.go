/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"log/slog"

	"github.com/fintrack/apiserver/config"
	"github.com/fintrack/apiserver/internal/db"
	"github.com/spf13/cobra"
)

var migrateDownSteps int

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadDatabaseConfig()
		if err != nil {
			return err
		}
		if err := db.MigrateUp(cfg); err != nil {
			return err
		}
		logger.Info("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Long:  "Rolls back the given number of migrations, or all of them without --steps.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadDatabaseConfig()
		if err != nil {
			return err
		}
		if err := db.MigrateDown(cfg, migrateDownSteps); err != nil {
			return err
		}
		logger.Info("migrations rolled back", "steps", migrateDownSteps)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 0, "number of migrations to roll back (0 means all)")
}

// loadDatabaseConfig skips full validation: migrations need no JWT secret.
func loadDatabaseConfig() (config.DatabaseConfig, *slog.Logger, error) {
	cfg, logger, _ := loadConfig()
	if cfg.Database.Driver != config.DriverPostgres {
		return config.DatabaseConfig{}, logger, errors.New("migrations require DB_DRIVER=postgres")
	}
	return cfg.Database, logger, nil
}
