package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

func TestRootCommand(t *testing.T) {
	cmd := rootCmd
	b := bytes.NewBufferString("")
	cmd.SetOut(b)
	cmd.SetErr(b)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	assert.NoError(t, err)

	output := b.String()
	assert.Contains(t, output, "snowdash")
	assert.Contains(t, output, "dashboards")
}

func TestRootCommandHelp(t *testing.T) {
	cmd := rootCmd
	b := bytes.NewBufferString("")
	cmd.SetOut(b)
	cmd.SetErr(b)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	assert.NoError(t, err)

	output := b.String()
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "quality")
	assert.Contains(t, output, "brokers")
	assert.Contains(t, output, "risk")
	assert.Contains(t, output, "governance")
	assert.Contains(t, output, "drilldown")
	assert.Contains(t, output, "serve")
	assert.Contains(t, output, "setup")
}

func TestInvalidCommand(t *testing.T) {
	cmd := rootCmd
	b := bytes.NewBufferString("")
	cmd.SetOut(b)
	cmd.SetErr(b)
	cmd.SetArgs([]string{"invalid-command"})

	err := cmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestDrilldownFlagDefaults(t *testing.T) {
	defaults := map[string]string{
		"table":  "",
		"metric": "",
		"limit":  "50",
		"csv":    "",
	}

	drilldownCmd.Flags().VisitAll(func(f *pflag.Flag) {
		want, ok := defaults[f.Name]
		if !ok {
			return
		}
		assert.Equal(t, want, f.DefValue, "flag %s", f.Name)
	})

	for name := range defaults {
		assert.NotNil(t, drilldownCmd.Flags().Lookup(name), "flag %s not registered", name)
	}
}

func TestDrilldownTarget(t *testing.T) {
	table, metric := drilldownTarget([]string{"CUSTOMERS_RAW", "INVALID_CUSTOMER_AGE_COUNT"}, "", "")
	assert.Equal(t, "CUSTOMERS_RAW", table)
	assert.Equal(t, "INVALID_CUSTOMER_AGE_COUNT", metric)

	// flags take precedence over positionals
	table, metric = drilldownTarget([]string{"CLAIMS_RAW", "NULL_COUNT"}, "CUSTOMERS_RAW", "")
	assert.Equal(t, "CUSTOMERS_RAW", table)
	assert.Equal(t, "NULL_COUNT", metric)

	table, metric = drilldownTarget(nil, "", "")
	assert.Equal(t, "", table)
	assert.Equal(t, "", metric)
}

func TestDrilldownRejectsExtraArgs(t *testing.T) {
	err := drilldownCmd.Args(drilldownCmd, []string{"a", "b", "c"})
	assert.Error(t, err)
	assert.NoError(t, drilldownCmd.Args(drilldownCmd, []string{"a", "b"}))
}

func TestServeFlags(t *testing.T) {
	assert.NotNil(t, serveCmd.Flags().Lookup("listen"))
	assert.NotNil(t, serveCmd.Flags().Lookup("auto-refresh"))
}
