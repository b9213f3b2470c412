package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"snowdash/internal/cache"
	"snowdash/internal/dashboard"
	"snowdash/internal/render"
)

var governanceWatch bool

var governanceCmd = &cobra.Command{
	Use:   "governance",
	Short: "Governance and compliance dashboard",
	Long: "Shows policy enforcement, masking and row access policies, tag-based\n" +
		"classification coverage, entity protection, and recent access patterns.",
	RunE: runGovernance,
}

func init() {
	governanceCmd.Flags().BoolVar(&governanceWatch, "watch", false, "re-render on the page refresh interval")
	rootCmd.AddCommand(governanceCmd)
}

func runGovernance(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	c := cache.New(time.Minute)
	defer c.Stop()

	store := dashboard.NewGovernanceStore(svc, c, cfg.Warehouse, cfg.Dashboard.GovernanceTTL, cfg.Dashboard.DetailTTL)
	r := render.New()

	return watchLoop(governanceWatch, cfg.Dashboard.GovernanceTTL, func() {
		page := store.FetchAll(ctx)
		access := store.FetchAccessMonitoring(ctx)
		r.Governance(page, access)
	})
}
