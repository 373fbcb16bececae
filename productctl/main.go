// Command productctl loads product catalog CSVs into the database and
// reports catalog insights.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gitlab.connectwisedev.com/catalog-insights/pkg/database"
)

var rootCmd = &cobra.Command{
	Use:   "productctl",
	Short: "Bulk-load product CSVs and query catalog insights",
	Long: `productctl - product catalog ingestion and insights
  - ingest CSV files in parallel batches
  - compute KPIs, brand concentration and discount bands
  - export catalog health reports`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var tableFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&tableFlag, "table", "", "target table as schema.table or table (default from DB_SCHEMA and TABLE_NAME)")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var qerr *database.QueryError
		if errors.As(err, &qerr) {
			fmt.Fprintln(os.Stderr, string(qerr.JSON()))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
