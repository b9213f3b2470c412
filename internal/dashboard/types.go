package dashboard

import "time"

// Quality status values produced by the warehouse DMF views
const (
	StatusExcellent = "EXCELLENT"
	StatusGood      = "GOOD"
	StatusWarning   = "WARNING"
	StatusCritical  = "CRITICAL"
	StatusUnknown   = "UNKNOWN"
)

// Relationship integrity grades
const (
	GradeExcellent      = "EXCELLENT"
	GradeGood           = "GOOD"
	GradeNeedsAttention = "NEEDS_ATTENTION"
	GradeCritical       = "CRITICAL"
)

// RowCountMetric is the volume metric excluded from quality breakdowns
const RowCountMetric = "SNOWFLAKE.CORE.ROW_COUNT"

// MetricRecord is one DMF measurement from QUALITY_MONITORING_SUMMARY
type MetricRecord struct {
	TableName       string    `json:"table_name"`
	MetricName      string    `json:"metric_name"`
	MetricValue     float64   `json:"metric_value"`
	QualityStatus   string    `json:"quality_status"`
	MeasurementTime time.Time `json:"measurement_time"`
}

// EntityScore is one row of ENTITY_QUALITY_SCORES
type EntityScore struct {
	EntityName          string    `json:"entity_name"`
	TotalMetrics        int       `json:"total_metrics"`
	ExcellentCount      int       `json:"excellent_count"`
	GoodCount           int       `json:"good_count"`
	WarningCount        int       `json:"warning_count"`
	CriticalCount       int       `json:"critical_count"`
	OverallQualityScore float64   `json:"overall_quality_score"`
	LastMeasured        time.Time `json:"last_measured"`
}

// ScoreGrade maps an overall quality score to its display grade
func ScoreGrade(score float64) string {
	switch {
	case score >= 90:
		return GradeExcellent
	case score >= 75:
		return GradeGood
	case score >= 60:
		return GradeNeedsAttention
	default:
		return GradeCritical
	}
}

// RelationshipMetric is the customer/claims integrity join result
type RelationshipMetric struct {
	RelationshipType     string  `json:"relationship_type"`
	TotalCustomers       int     `json:"total_customers"`
	ValidRelationships   int     `json:"valid_relationships"`
	MissingRelationships int     `json:"missing_relationships"`
	IntegrityPercentage  float64 `json:"integrity_percentage"`
	IntegrityGrade       string  `json:"integrity_grade"`
}

// QualityIssue is one SYSTEM$DATA_METRIC_SCAN view count
type QualityIssue struct {
	IssueType       string `json:"issue_type"`
	AffectedRecords int    `json:"affected_records"`
	TableName       string `json:"table_name"`
}

// RowCount is the volume metric slice of the quality summary
type RowCount struct {
	TableName       string    `json:"table_name"`
	RowCount        int64     `json:"row_count"`
	MeasurementTime time.Time `json:"measurement_time"`
}

// DMFStatus describes one configured data metric function
type DMFStatus struct {
	TableName      string `json:"table_name"`
	MetricName     string `json:"metric_name"`
	Schedule       string `json:"schedule"`
	ScheduleStatus string `json:"schedule_status"`
}

// BrokerPerformanceRow is one broker from BROKER_PERFORMANCE_MATRIX
type BrokerPerformanceRow struct {
	BrokerID                 string  `json:"broker_id"`
	FirstName                string  `json:"broker_first_name"`
	LastName                 string  `json:"broker_last_name"`
	Office                   string  `json:"broker_office"`
	Satisfaction             float64 `json:"broker_satisfaction"`
	Experience               int     `json:"broker_experience"`
	Training                 float64 `json:"broker_training"`
	Tier                     string  `json:"broker_tier"`
	Active                   bool    `json:"broker_active"`
	TotalCustomers           int     `json:"total_customers"`
	CustomersWithClaims      int     `json:"customers_with_claims"`
	AvgCustomerPremium       float64 `json:"avg_customer_premium"`
	TotalPremiumVolume       float64 `json:"total_premium_volume"`
	AvgClaimAmount           float64 `json:"avg_claim_amount"`
	TotalClaimAmount         float64 `json:"total_claim_amount"`
	TerritoryAdjustedPremium float64 `json:"territory_adjusted_premium"`
	AvgCustomerRisk          float64 `json:"avg_customer_risk"`
	FraudCases               int     `json:"fraud_cases"`
	CustomerRegion           string  `json:"customer_region"`
	CustomersInRegion        int     `json:"customers_in_region"`
}

// BrokerIntelligence is the grouped risk-dashboard view of one broker,
// including the server-computed performance analysis blob.
type BrokerIntelligence struct {
	BrokerID             string              `json:"broker_id"`
	Analysis             PerformanceAnalysis `json:"performance_analysis"`
	CustomerCount        int                 `json:"customer_count"`
	AvgCustomerRiskScore float64             `json:"avg_customer_risk_score"`
	HighRiskCustomers    int                 `json:"high_risk_customers"`
	PremiumCustomers     int                 `json:"premium_customers"`
	AvgPremium           float64             `json:"avg_premium"`
	TotalClaims          float64             `json:"total_claims"`
}

// TerritoryPerformance aggregates the broker matrix by region
type TerritoryPerformance struct {
	Region        string  `json:"customer_region"`
	ActiveBrokers int     `json:"active_brokers"`
	TotalCustomers int    `json:"total_customers"`
	AvgPremium    float64 `json:"region_avg_premium"`
	PremiumVolume float64 `json:"region_premium_volume"`
	RiskScore     float64 `json:"region_risk_score"`
	FraudCases    int     `json:"region_fraud_cases"`
	Satisfaction  float64 `json:"region_satisfaction"`
}

// BrokerRanking carries the windowed rank columns for the comparison table
type BrokerRanking struct {
	BrokerID            string  `json:"broker_id"`
	BrokerName          string  `json:"broker_name"`
	Tier                string  `json:"broker_tier"`
	TotalPremiumVolume  float64 `json:"total_premium_volume"`
	AvgCustomerRisk     float64 `json:"avg_customer_risk"`
	Satisfaction        float64 `json:"broker_satisfaction"`
	CustomersWithClaims int     `json:"customers_with_claims"`
	TotalCustomers      int     `json:"total_customers"`
	ClaimsRatio         float64 `json:"claims_ratio"`
	VolumeRank          int     `json:"volume_rank"`
	RiskRank            int     `json:"risk_rank"`
	SatisfactionRank    int     `json:"satisfaction_rank"`
}

// RiskDashboardRow is one customer from RISK_INTELLIGENCE_DASHBOARD
type RiskDashboardRow struct {
	PolicyNumber        string              `json:"policy_number"`
	Age                 *int                `json:"age"`
	CustomerSegment     string              `json:"customer_segment"`
	CustomerRiskScore   float64             `json:"customer_risk_score"`
	PolicyAnnualPremium float64             `json:"policy_annual_premium"`
	ClaimAmount         float64             `json:"claim_amount_filled"`
	CustomerRegion      string              `json:"customer_region"`
	BrokerID            string              `json:"broker_id"`
	BrokerTier          string              `json:"broker_tier"`
	BrokerCustomerCount int                 `json:"broker_customer_count"`
	BrokerAvgClaim      float64             `json:"broker_avg_claim"`
	FinalRiskLevel      string              `json:"final_risk_level"`
	Analysis            PerformanceAnalysis `json:"broker_performance_analysis"`
	InsuredSex          string              `json:"insured_sex"`
	InsuredOccupation   string              `json:"insured_occupation"`
	HasClaim            bool                `json:"has_claim"`
	FraudReported       bool                `json:"fraud_reported_filled"`
}

// RiskProfile is a segment x region aggregation
type RiskProfile struct {
	CustomerSegment string  `json:"customer_segment"`
	CustomerRegion  string  `json:"customer_region"`
	CustomerCount   int     `json:"customer_count"`
	AvgRiskScore    float64 `json:"avg_risk_score"`
	AvgPremium      float64 `json:"avg_premium"`
	HighRiskCount   int     `json:"high_risk_count"`
	MediumRiskCount int     `json:"medium_risk_count"`
	LowRiskCount    int     `json:"low_risk_count"`
	TotalClaims     float64 `json:"total_claims"`
}

// BrokerCorrelation links broker attributes to portfolio outcomes
type BrokerCorrelation struct {
	BrokerID            string              `json:"broker_id"`
	BrokerTier          string              `json:"broker_tier"`
	BrokerCustomerCount int                 `json:"broker_customer_count"`
	BrokerAvgClaim      float64             `json:"broker_avg_claim"`
	ManagedCustomers    int                 `json:"managed_customers"`
	PortfolioRiskScore  float64             `json:"portfolio_risk_score"`
	HighRiskCustomers   int                 `json:"high_risk_customers"`
	AvgPortfolioPremium float64             `json:"avg_portfolio_premium"`
	TotalPortfolioClaims float64            `json:"total_portfolio_claims"`
	PrimaryRegion       string              `json:"primary_region"`
	Analysis            PerformanceAnalysis `json:"broker_performance_analysis"`
}

// GeographicRisk is the per-region risk distribution
type GeographicRisk struct {
	Region         string  `json:"customer_region"`
	TotalCustomers int     `json:"total_customers"`
	AvgRisk        float64 `json:"region_avg_risk"`
	HighRiskCount  int     `json:"high_risk_count"`
	ActiveBrokers  int     `json:"active_brokers"`
	AvgPremium     float64 `json:"region_avg_premium"`
	TotalClaims    float64 `json:"region_total_claims"`
}

// PortfolioSegment is one customer-segment slice of a broker's book
type PortfolioSegment struct {
	CustomerSegment string  `json:"customer_segment"`
	CustomerCount   int     `json:"customer_count"`
	AvgRiskScore    float64 `json:"avg_risk_score"`
	AvgPremium      float64 `json:"avg_premium"`
	TotalClaims     float64 `json:"total_claims"`
	HighRiskCount   int     `json:"high_risk_count"`
}

// RiskTrend groups a broker's customers by risk level and server-predicted
// trajectory.
type RiskTrend struct {
	FinalRiskLevel string         `json:"final_risk_level"`
	CustomerCount  int            `json:"customer_count"`
	AvgScore       float64        `json:"avg_score"`
	Trajectory     RiskTrajectory `json:"risk_trajectory_prediction"`
}

// PolicyEnforcement is one row of the governance POLICY_ENFORCEMENT_LOG
type PolicyEnforcement struct {
	PolicyName        string    `json:"policy_name"`
	EntityType        string    `json:"entity_type"`
	EntityName        string    `json:"entity_name"`
	EnforcementStatus string    `json:"enforcement_status"`
	LastEvaluated     time.Time `json:"last_evaluated"`
	ComplianceScore   float64   `json:"compliance_score"`
	ViolationCount    int       `json:"violation_count"`
	PolicyCategory    string    `json:"policy_category"`
}

// GovernancePolicy is a masking or row access policy definition row
type GovernancePolicy struct {
	PolicyName      string    `json:"policy_name"`
	PolicyKind      string    `json:"policy_kind"`
	PolicyBody      string    `json:"policy_body"`
	PolicySignature string    `json:"policy_signature"`
	Created         time.Time `json:"created"`
	LastAltered     time.Time `json:"last_altered"`
	Comment         string    `json:"comment"`
}

// TagReference is one applied governance tag
type TagReference struct {
	TagName    string    `json:"tag_name"`
	TagValue   string    `json:"tag_value"`
	ObjectType string    `json:"object_type"`
	ObjectName string    `json:"object_name"`
	Domain     string    `json:"domain"`
	AppliedAt  time.Time `json:"applied_at"`
}

// ClassificationSummary aggregates DATA_CLASSIFICATION tags
type ClassificationSummary struct {
	Category      string `json:"classification_category"`
	Name          string `json:"classification_name"`
	ObjectCount   int    `json:"object_count"`
	DatabaseCount int    `json:"database_count"`
	SchemaCount   int    `json:"schema_count"`
}

// EntityGovernance summarizes masking coverage per secure view
type EntityGovernance struct {
	EntityName       string `json:"entity_name"`
	TotalRecords     int    `json:"total_records"`
	ProtectedRecords int    `json:"protected_records"`
	ReferencedRecords int   `json:"referenced_records"`
	GovernanceStatus string `json:"governance_status"`
}

// AccessPattern is an hourly QUERY_HISTORY aggregation
type AccessPattern struct {
	AccessHour    time.Time `json:"access_hour"`
	UserName      string    `json:"user_name"`
	RoleName      string    `json:"role_name"`
	WarehouseName string    `json:"warehouse_name"`
	DatabaseName  string    `json:"database_name"`
	SchemaName    string    `json:"schema_name"`
	QueryType     string    `json:"query_type"`
	QueryCount    int       `json:"query_count"`
	TotalTimeMS   int64     `json:"total_time_ms"`
}
