package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"snowdash/internal/config"
	"snowdash/internal/snowflake"
	"snowdash/pkg/errors"
	"snowdash/pkg/models"
)

var rootCmd = &cobra.Command{
	Use:   "snowdash",
	Short: "Insurance analytics dashboards for Snowflake",
	Long: "Snowdash - terminal and HTTP dashboards over the insurance workshop warehouse:\n" +
		"data quality monitoring, broker performance, risk intelligence, and governance.",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.snowdash")
	}

	viper.SetEnvPrefix("SNOWDASH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is okay; setup creates it
	}
}

// loadConfig reads the saved configuration or fails with a setup hint
func loadConfig() (*models.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// connect opens a warehouse session from the saved configuration
func connect(ctx context.Context) (*snowflake.Service, *models.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	if cfg.Snowflake.Account == "" {
		cfgErr := errors.ConfigError("No Snowflake account configured", "snowflake.account")
		for _, suggestion := range errors.GetSuggestions(cfgErr) {
			fmt.Fprintf(os.Stderr, "  tip: %s\n", suggestion)
		}
		return nil, nil, cfgErr
	}

	svc := snowflake.NewService(snowflake.Config{
		Account:   cfg.Snowflake.Account,
		Username:  cfg.Snowflake.Username,
		Password:  cfg.Snowflake.Password,
		Database:  cfg.Snowflake.Database,
		Schema:    cfg.Snowflake.Schema,
		Warehouse: cfg.Snowflake.Warehouse,
		Role:      cfg.Snowflake.Role,
		Timeout:   30 * time.Second,
	})

	if err := svc.Connect(ctx); err != nil {
		for _, suggestion := range errors.GetSuggestions(err) {
			fmt.Fprintf(os.Stderr, "  tip: %s\n", suggestion)
		}
		return nil, nil, err
	}
	return svc, cfg, nil
}
