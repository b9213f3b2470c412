package models

import "time"

type Config struct {
	Snowflake Snowflake `yaml:"snowflake"`
	Warehouse Warehouse `yaml:"warehouse"`
	Dashboard Dashboard `yaml:"dashboard"`
	Server    Server    `yaml:"server"`
}

type Snowflake struct {
	Account   string `yaml:"account"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
}

// Warehouse names the database objects the dashboards read from. Defaults
// match the insurance workshop deployment; overriding them lets the same
// binary point at a renamed database.
type Warehouse struct {
	Database         string `yaml:"database"`
	RawSchema        string `yaml:"raw_schema"`
	AnalyticsSchema  string `yaml:"analytics_schema"`
	GovernanceSchema string `yaml:"governance_schema"`
	SharingSchema    string `yaml:"sharing_schema"`
}

// Dashboard holds per-page fetch memoization windows.
type Dashboard struct {
	QualityTTL    time.Duration `yaml:"quality_ttl"`
	BrokerTTL     time.Duration `yaml:"broker_ttl"`
	RiskTTL       time.Duration `yaml:"risk_ttl"`
	GovernanceTTL time.Duration `yaml:"governance_ttl"`
	DetailTTL     time.Duration `yaml:"detail_ttl"`
}

type Server struct {
	Listen      string `yaml:"listen"`
	AutoRefresh bool   `yaml:"auto_refresh"`
}

// DefaultWarehouse returns the object names of the workshop deployment.
func DefaultWarehouse() Warehouse {
	return Warehouse{
		Database:         "INSURANCE_WORKSHOP_DB",
		RawSchema:        "RAW_DATA",
		AnalyticsSchema:  "ANALYTICS",
		GovernanceSchema: "GOVERNANCE",
		SharingSchema:    "SHARING",
	}
}

// DefaultDashboard returns the memoization windows the original pages used.
func DefaultDashboard() Dashboard {
	return Dashboard{
		QualityTTL:    30 * time.Second,
		BrokerTTL:     60 * time.Second,
		RiskTTL:       60 * time.Second,
		GovernanceTTL: 60 * time.Second,
		DetailTTL:     120 * time.Second,
	}
}

// ApplyDefaults fills zero-valued sections in place.
func (c *Config) ApplyDefaults() {
	def := DefaultWarehouse()
	if c.Warehouse.Database == "" {
		c.Warehouse.Database = def.Database
	}
	if c.Warehouse.RawSchema == "" {
		c.Warehouse.RawSchema = def.RawSchema
	}
	if c.Warehouse.AnalyticsSchema == "" {
		c.Warehouse.AnalyticsSchema = def.AnalyticsSchema
	}
	if c.Warehouse.GovernanceSchema == "" {
		c.Warehouse.GovernanceSchema = def.GovernanceSchema
	}
	if c.Warehouse.SharingSchema == "" {
		c.Warehouse.SharingSchema = def.SharingSchema
	}

	ttl := DefaultDashboard()
	if c.Dashboard.QualityTTL == 0 {
		c.Dashboard.QualityTTL = ttl.QualityTTL
	}
	if c.Dashboard.BrokerTTL == 0 {
		c.Dashboard.BrokerTTL = ttl.BrokerTTL
	}
	if c.Dashboard.RiskTTL == 0 {
		c.Dashboard.RiskTTL = ttl.RiskTTL
	}
	if c.Dashboard.GovernanceTTL == 0 {
		c.Dashboard.GovernanceTTL = ttl.GovernanceTTL
	}
	if c.Dashboard.DetailTTL == 0 {
		c.Dashboard.DetailTTL = ttl.DetailTTL
	}

	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
}
