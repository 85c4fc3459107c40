/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log/slog"
	"os"

	"github.com/fintrack/apiserver/config"
	"github.com/fintrack/apiserver/internal/logging"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fintrack",
	Short: "Personal finance tracking backend",
	Long: `fintrack serves the personal finance API: accounts, transactions
and their statistics, plus CSV exports processed by a background worker.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads and validates the environment configuration and builds
// the process logger from it.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg := config.LoadConfig()
	logger := logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		return cfg, logger, err
	}
	return cfg, logger, nil
}
