package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"snowdash/internal/cache"
	"snowdash/internal/dashboard"
	"snowdash/internal/render"
)

var riskWatch bool

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Risk analytics dashboard",
	Long: "Shows the customer risk dashboard, profile distribution, broker risk\n" +
		"correlation, and geographic exposure.",
	RunE: runRisk,
}

func init() {
	riskCmd.Flags().BoolVar(&riskWatch, "watch", false, "re-render on the page refresh interval")
	rootCmd.AddCommand(riskCmd)
}

func runRisk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	c := cache.New(time.Minute)
	defer c.Stop()

	store := dashboard.NewRiskStore(svc, c, cfg.Warehouse, cfg.Dashboard.RiskTTL)
	r := render.New()

	return watchLoop(riskWatch, cfg.Dashboard.RiskTTL, func() {
		r.Risk(store.FetchAll(ctx))
	})
}
