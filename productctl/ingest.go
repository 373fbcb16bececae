package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"gitlab.connectwisedev.com/catalog-insights/pkg/config"
	"gitlab.connectwisedev.com/catalog-insights/pkg/database"
	"gitlab.connectwisedev.com/catalog-insights/pkg/ingest"
	"gitlab.connectwisedev.com/catalog-insights/pkg/metrics"
	"gitlab.connectwisedev.com/catalog-insights/pkg/service"
)

var ingestOpts ingestFlags

var ingestCmd = &cobra.Command{
	Use:   "ingest PATH...",
	Short: "Load product CSV files into the products table",
	Long: `Load one or more product CSV files into the configured table.

Each PATH may be a file, a directory (its *.csv files) or a glob. Large
files are split into byte-range partitions that are loaded in parallel,
each committing every --batch-size rows.

Examples:
  productctl ingest data/products.csv
  productctl ingest --workers 4 --create-table 'drops/*.csv'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestOpts.register(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if _, err := ingest.ResolveSources(args...); err != nil {
		return err
	}

	cfg, err := loadConfig(ingestOpts.apply)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if ingestOpts.createTable {
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
	res, err := eng.Run(ctx, args...)
	if err != nil {
		var perr *ingest.PartitionError
		if errors.As(err, &perr) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Ingestion failed; %d records were committed to %s before the failure.\n", res.Total, cfg.Table())
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d records into %s\n", res.Total, cfg.Table())
	return nil
}

func ensureTable(ctx context.Context, cfg config.Config) error {
	db, err := database.NewClient(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.CreateProductsTable(ctx, db.GetDB(), cfg.Table()); err != nil {
		return err
	}
	log.Printf("Ensured table %s exists.", cfg.Table())
	return nil
}
