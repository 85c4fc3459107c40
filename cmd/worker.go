/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/fintrack/apiserver/config"
	"github.com/fintrack/apiserver/internal/mq"
	"github.com/fintrack/apiserver/internal/server"
	"github.com/fintrack/apiserver/internal/services"
	"github.com/fintrack/apiserver/internal/storage"
	"github.com/fintrack/apiserver/internal/worker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerConcurrency int

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Processes queued transaction exports",
	Long: `Consumes export jobs from the configured queue, renders each user's
transactions to CSV and uploads the file to object storage. Usage:

	fintrack worker --concurrency 2
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.ExportsEnabled() {
			return errors.New("worker requires MQ_BACKEND and STORAGE_BACKEND to be configured")
		}
		if cfg.Database.Driver == config.DriverMemory {
			return errors.New("worker cannot share a memory store with the server; use DB_DRIVER=postgres")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stores, err := server.OpenStores(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer stores.Close()

		queue, err := mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer queue.Close()

		objects, err := storage.NewFromConfig(ctx, cfg.Storage)
		if err != nil {
			return err
		}

		exports := services.NewExportService(stores.Exports, stores.Transactions, queue, objects, cfg.Export.Channel)
		w := worker.New(queue, exports, cfg.Export.Channel, logger)

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < max(workerConcurrency, 1); i++ {
			g.Go(func() error { return w.Run(gctx) })
		}
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 1, "number of concurrent consumers")
}
