package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"snowdash/internal/config"
	"snowdash/pkg/models"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initial configuration setup",
	Run:   runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) {
	fmt.Println("Setting up snowdash...")
	fmt.Println()

	if config.Exists() {
		var overwrite bool
		prompt := &survey.Confirm{
			Message: "Configuration already exists. Do you want to overwrite it?",
			Default: false,
		}
		survey.AskOne(prompt, &overwrite)
		if !overwrite {
			fmt.Println("Setup cancelled.")
			return
		}
	}

	cfg := &models.Config{}

	fmt.Println("Snowflake Configuration")
	fmt.Println("-----------------------")

	snowflakeQs := []*survey.Question{
		{
			Name: "account",
			Prompt: &survey.Input{
				Message: "Snowflake Account (e.g., xy12345.us-east-1):",
			},
			Validate: survey.Required,
		},
		{
			Name: "username",
			Prompt: &survey.Input{
				Message: "Username:",
			},
			Validate: survey.Required,
		},
		{
			Name: "password",
			Prompt: &survey.Password{
				Message: "Password:",
			},
			Validate: survey.Required,
		},
		{
			Name: "role",
			Prompt: &survey.Input{
				Message: "Role:",
				Default: "WORKSHOP_ROLE",
			},
			Validate: survey.Required,
		},
		{
			Name: "warehouse",
			Prompt: &survey.Input{
				Message: "Warehouse:",
				Default: "COMPUTE_WH",
			},
			Validate: survey.Required,
		},
		{
			Name: "database",
			Prompt: &survey.Input{
				Message: "Database:",
				Default: models.DefaultWarehouse().Database,
			},
			Validate: survey.Required,
		},
		{
			Name: "schema",
			Prompt: &survey.Input{
				Message: "Schema:",
				Default: models.DefaultWarehouse().AnalyticsSchema,
			},
			Validate: survey.Required,
		},
	}

	if err := survey.Ask(snowflakeQs, &cfg.Snowflake); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Dashboard Configuration")
	fmt.Println("-----------------------")

	var listen string
	survey.AskOne(&survey.Input{
		Message: "HTTP listen address:",
		Default: ":8080",
	}, &listen)
	cfg.Server.Listen = listen

	survey.AskOne(&survey.Confirm{
		Message: "Enable background auto-refresh when serving?",
		Default: false,
	}, &cfg.Server.AutoRefresh)

	cfg.ApplyDefaults()

	if err := config.Save(cfg); err != nil {
		fmt.Printf("Error saving configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("Configuration saved to %s\n", config.GetConfigFile())
	fmt.Println("Run 'snowdash quality' or 'snowdash serve' to get started.")
}
