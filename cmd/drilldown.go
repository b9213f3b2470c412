package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"snowdash/internal/cache"
	"snowdash/internal/dashboard"
	"snowdash/internal/drilldown"
	"snowdash/internal/render"
	"snowdash/internal/snowflake"
	"snowdash/pkg/models"
)

var (
	drilldownTable  string
	drilldownMetric string
	drilldownLimit  int
	drilldownCSV    string
)

var drilldownCmd = &cobra.Command{
	Use:   "drilldown [table] [metric]",
	Args:  cobra.MaximumNArgs(2),
	Short: "Inspect records behind a failing quality metric",
	Long: "Fetches the problematic records behind a quality metric, like customers\n" +
		"with invalid ages or policies with malformed broker ids. With no flags the\n" +
		"table and metric are picked interactively from the current quality summary.",
	RunE: runDrilldown,
}

func init() {
	drilldownCmd.Flags().StringVar(&drilldownTable, "table", "", "table the metric was measured on")
	drilldownCmd.Flags().StringVar(&drilldownMetric, "metric", "", "metric name to drill into")
	drilldownCmd.Flags().IntVar(&drilldownLimit, "limit", drilldown.DefaultLimit, "maximum records to fetch")
	drilldownCmd.Flags().StringVar(&drilldownCSV, "csv", "", "write records to a CSV file ('-' picks a timestamped name)")
	rootCmd.AddCommand(drilldownCmd)
}

func runDrilldown(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	table, metric := drilldownTarget(args, drilldownTable, drilldownMetric)
	if table == "" || metric == "" {
		table, metric, err = selectMetric(ctx, svc, cfg, table, metric)
		if err != nil {
			return err
		}
	}

	resolver := drilldown.NewResolver(svc, cfg.Warehouse)
	records, query, warnings := resolver.FetchProblemRecords(ctx, table, metric, drilldownLimit)

	r := render.New()
	r.Drilldown(records, query, warnings)

	if drilldownCSV == "" {
		return nil
	}

	data, err := records.CSV()
	if err != nil {
		return fmt.Errorf("encoding records as CSV: %w", err)
	}
	path := drilldownCSV
	if path == "-" {
		path = drilldown.ExportFilename(table, metric, time.Now())
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("Exported %d records to %s\n", len(records.Rows), path)
	return nil
}

// drilldownTarget merges positional arguments with the --table/--metric
// flags; flags win so scripts can pin one axis and prompt for the other.
func drilldownTarget(args []string, table, metric string) (string, string) {
	if table == "" && len(args) > 0 {
		table = args[0]
	}
	if metric == "" && len(args) > 1 {
		metric = args[1]
	}
	return table, metric
}

// selectMetric prompts for a table and metric drawn from the metrics that
// currently have a non-perfect status in the quality summary.
func selectMetric(ctx context.Context, svc *snowflake.Service, cfg *models.Config, table, metric string) (string, string, error) {
	c := cache.New(time.Minute)
	defer c.Stop()

	store := dashboard.NewQualityStore(svc, c, cfg.Warehouse, cfg.Dashboard.QualityTTL)
	page := store.FetchAll(ctx)
	breakdown := dashboard.MetricBreakdown(page.Summary.Rows)
	if len(breakdown) == 0 {
		return "", "", fmt.Errorf("no quality metrics available to drill into")
	}

	tables := make([]string, 0)
	seen := make(map[string]bool)
	for _, record := range breakdown {
		if !seen[record.TableName] {
			seen[record.TableName] = true
			tables = append(tables, record.TableName)
		}
	}
	sort.Strings(tables)

	if table == "" {
		prompt := &survey.Select{
			Message: "Select table to analyze:",
			Options: tables,
		}
		if err := survey.AskOne(prompt, &table); err != nil {
			return "", "", err
		}
	}

	metrics := make([]string, 0)
	for _, record := range breakdown {
		if record.TableName == table {
			metrics = append(metrics, fmt.Sprintf("%s (%.0f)", record.MetricName, record.MetricValue))
		}
	}
	if len(metrics) == 0 {
		return "", "", fmt.Errorf("no metrics recorded for %s", table)
	}

	if metric == "" {
		var selected string
		prompt := &survey.Select{
			Message: "Select metric to drill into:",
			Options: metrics,
		}
		if err := survey.AskOne(prompt, &selected); err != nil {
			return "", "", err
		}
		for _, record := range breakdown {
			if record.TableName == table && fmt.Sprintf("%s (%.0f)", record.MetricName, record.MetricValue) == selected {
				metric = record.MetricName
				break
			}
		}
	}
	return table, metric, nil
}
