package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"snowdash/internal/cache"
	"snowdash/internal/dashboard"
	"snowdash/internal/render"
)

var (
	brokerID     string
	brokerDetail bool
	brokerWatch  bool
)

var brokersCmd = &cobra.Command{
	Use:   "brokers",
	Short: "Broker performance dashboard",
	Long: "Shows the broker performance matrix, territory comparison, and rankings.\n" +
		"Use --broker to drill into one broker's scorecard and portfolio.",
	RunE: runBrokers,
}

func init() {
	brokersCmd.Flags().StringVar(&brokerID, "broker", "", "broker id for the detailed scorecard")
	brokersCmd.Flags().BoolVar(&brokerDetail, "detail", false, "pick a broker interactively for the scorecard")
	brokersCmd.Flags().BoolVar(&brokerWatch, "watch", false, "re-render on the page refresh interval")
	rootCmd.AddCommand(brokersCmd)
}

func runBrokers(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	c := cache.New(time.Minute)
	defer c.Stop()

	store := dashboard.NewBrokerStore(svc, c, cfg.Warehouse, cfg.Dashboard.BrokerTTL, cfg.Dashboard.DetailTTL)
	r := render.New()

	if brokerID != "" || brokerDetail {
		page := store.FetchAll(ctx)
		id := brokerID
		if id == "" {
			id, err = selectBroker(page)
			if err != nil {
				return err
			}
		} else if !brokerExists(page, id) {
			return fmt.Errorf("broker %s not found in the performance matrix", id)
		}
		detail := store.FetchDetail(ctx, id)
		r.BrokerDetail(detail, page.Intelligence.Rows)
		return nil
	}

	return watchLoop(brokerWatch, cfg.Dashboard.BrokerTTL, func() {
		r.Brokers(store.FetchAll(ctx))
	})
}

func brokerExists(page dashboard.BrokerPage, id string) bool {
	for _, broker := range page.Matrix.Rows {
		if broker.BrokerID == id {
			return true
		}
	}
	return false
}

// selectBroker prompts for a broker when none was given on the command
// line, mirroring the selector flow of the interactive page.
func selectBroker(page dashboard.BrokerPage) (string, error) {
	if len(page.Matrix.Rows) == 0 {
		return "", fmt.Errorf("no active brokers available")
	}

	options := make([]string, len(page.Matrix.Rows))
	byDisplay := make(map[string]string, len(page.Matrix.Rows))
	for i, broker := range page.Matrix.Rows {
		display := fmt.Sprintf("%s %s (%s)", broker.FirstName, broker.LastName, broker.Tier)
		options[i] = display
		byDisplay[display] = broker.BrokerID
	}

	var selected string
	prompt := &survey.Select{
		Message: "Select broker for detailed analysis:",
		Options: options,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return byDisplay[selected], nil
}
