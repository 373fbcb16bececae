package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gitlab.connectwisedev.com/catalog-insights/pkg/service"
)

var (
	insightsFilters filterFlags
	insightsOut     string
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Compute the insights pack for a filter",
	Long: `Compute KPIs, brand concentration, discount bands and the top
discounted-and-rated items for the products matching a filter, followed by
plain-language summary bullets.

Examples:
  productctl insights
  productctl insights --filters-json '{"brands":["Puma"],"min_rating":4}'
  productctl insights --filters-file filters.yaml --out pack.json`,
	Args: cobra.NoArgs,
	RunE: runInsights,
}

func init() {
	insightsFilters.register(insightsCmd)
	insightsCmd.Flags().StringVar(&insightsOut, "out", "", "write the JSON pack to this file instead of stdout")
}

func runInsights(cmd *cobra.Command, args []string) error {
	f, err := insightsFilters.load()
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

	pack, err := ins.Provider.Insights(ctx, f)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(pack, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode insights: %w", err)
	}

	out := cmd.OutOrStdout()
	if insightsOut == "" {
		fmt.Fprintln(out, string(body))
		return nil
	}
	if err := os.WriteFile(insightsOut, append(body, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", insightsOut, err)
	}
	fmt.Fprintf(out, "Wrote insights to %s\n", insightsOut)
	for _, b := range pack.Bullets {
		fmt.Fprintf(out, "  - %s\n", b)
	}
	return nil
}
