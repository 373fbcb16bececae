package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gitlab.connectwisedev.com/catalog-insights/pkg/query"
	"gitlab.connectwisedev.com/catalog-insights/pkg/service"
)

var (
	exportFilters filterFlags
	exportOutDir  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog health report as CSV files",
	Long: `Run the catalog health queries (row counts, ratings coverage, price
buckets, data quality, ...) and write each result to <out-dir>/<name>.csv.

Examples:
  productctl export --out-dir reports
  productctl export --filters-json '{"exclude_brands":["Generic"]}' --out-dir reports`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportFilters.register(exportCmd)
	exportCmd.Flags().StringVar(&exportOutDir, "out-dir", "analytics_out", "directory for the CSV reports")
}

func runExport(cmd *cobra.Command, args []string) error {
	f, err := exportFilters.load()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ins, err := service.NewInsights(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer ins.Close()

	tables, err := ins.Analytics.CatalogReport(ctx, f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(exportOutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOutDir, err)
	}
	for _, t := range tables {
		path, err := writeTableCSV(exportOutDir, t)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-28s %8s rows -> %s\n", t.Name, humanize.Comma(int64(len(t.Rows))), path)
	}
	return nil
}

// writeTableCSV writes t to dir/<name>.csv in column order and returns
// the path.
func writeTableCSV(dir string, t query.Table) (string, error) {
	path := filepath.Join(dir, t.Name+".csv")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(t.Columns); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			rec[i] = formatCell(row[c])
		}
		if err := w.Write(rec); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, file.Close()
}

// formatCell renders a query value; NULL becomes an empty cell.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
