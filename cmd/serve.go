package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"snowdash/internal/server"
)

var (
	serveListen      string
	serveAutoRefresh bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboards as a JSON API",
	Long: "Starts the HTTP server exposing the quality, broker, risk, and governance\n" +
		"pages as JSON endpoints, plus drill-down, CSV export, and Prometheus metrics.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveAutoRefresh, "auto-refresh", false, "warm the cache on each page TTL")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}
	if serveAutoRefresh {
		cfg.Server.AutoRefresh = true
	}

	fmt.Printf("Serving dashboards on %s\n", cfg.Server.Listen)
	return server.New(svc, *cfg).ListenAndServe(ctx)
}
