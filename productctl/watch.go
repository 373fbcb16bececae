package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"gitlab.connectwisedev.com/catalog-insights/pkg/ingest"
	"gitlab.connectwisedev.com/catalog-insights/pkg/metrics"
	"gitlab.connectwisedev.com/catalog-insights/pkg/service"
	"gitlab.connectwisedev.com/catalog-insights/pkg/watch"
)

var (
	watchOpts   ingestFlags
	watchSettle time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Ingest every CSV file dropped into a folder",
	Long: `Watch DIR and run an ingestion for each new *.csv file, one file at a
time, until interrupted.

Examples:
  productctl watch ./drops
  productctl watch --settle 5s --metrics-addr :9102 ./drops`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchOpts.register(watchCmd)
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 2*time.Second, "wait this long after a file appears before loading it")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(watchOpts.apply)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if watchOpts.createTable {
		if err := ensureTable(ctx, cfg); err != nil {
			return err
		}
	}

	reg := metrics.NewRegistry()
	defer serveMetrics(cfg.MetricsAddr, reg)()

	eng, err := service.NewEngine(cfg, reg)
	if err != nil {
		return err
	}
	w, err := watch.NewFolderWatcher(args[0], watchSettle, ingestFile(eng, cfg.Table().String()))
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", args[0], err)
	}
	return w.Run(ctx)
}

func ingestFile(eng *ingest.Engine, table string) watch.Handler {
	return func(ctx context.Context, path string) error {
		res, err := eng.Run(ctx, path)
		if err != nil {
			return err
		}
		log.Printf("Inserted %d records from %s into %s", res.Total, path, table)
		return nil
	}
}
