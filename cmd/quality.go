package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"snowdash/internal/cache"
	"snowdash/internal/dashboard"
	"snowdash/internal/render"
)

var (
	qualityEntity string
	qualityStatus string
	qualityRecent bool
	qualityWatch  bool
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Data quality monitoring dashboard",
	RunE:  runQuality,
}

func init() {
	qualityCmd.Flags().StringVar(&qualityEntity, "entity", "", "filter the summary to one table")
	qualityCmd.Flags().StringVar(&qualityStatus, "status", "", "filter the summary by quality status")
	qualityCmd.Flags().BoolVar(&qualityRecent, "recent", false, "only measurements from the last hour")
	qualityCmd.Flags().BoolVar(&qualityWatch, "watch", false, "re-render on the page refresh interval")
	rootCmd.AddCommand(qualityCmd)
}

func runQuality(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	c := cache.New(time.Minute)
	defer c.Stop()

	store := dashboard.NewQualityStore(svc, c, cfg.Warehouse, cfg.Dashboard.QualityTTL)
	r := render.New()

	filter := dashboard.SummaryFilter{Entity: qualityEntity, Status: qualityStatus}
	if qualityRecent {
		filter.Recent = time.Hour
	}

	return watchLoop(qualityWatch, cfg.Dashboard.QualityTTL, func() {
		page := store.FetchAll(ctx)
		page.Summary.Rows = filter.Apply(page.Summary.Rows)
		r.Quality(page)
	})
}

// watchLoop renders once, or repeatedly on the page cadence until
// interrupted.
func watchLoop(watch bool, interval time.Duration, renderPage func()) error {
	renderPage()
	if !watch {
		return nil
	}
	for {
		time.Sleep(interval)
		renderPage()
	}
}
