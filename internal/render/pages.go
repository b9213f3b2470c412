package render

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"snowdash/internal/dashboard"
	"snowdash/internal/drilldown"
	"snowdash/internal/snowflake"
)

func (r *Renderer) newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// Session prints the connection probe and any missing monitoring views
func (r *Renderer) Session(info snowflake.SessionInfo, missing []string) {
	r.Header("Connection & Environment")
	r.Metric("User", info.User)
	r.Metric("Role", info.Role)
	r.Metric("Database", info.Database)
	r.Metric("Schema", info.Schema)

	if len(missing) > 0 {
		fmt.Fprintf(r.out, "%s missing views: %s\n",
			ColorWarning("WARNING:"), strings.Join(missing, ", "))
		fmt.Fprintf(r.out, "%s run %s to create the monitoring views\n",
			ColorInfo("TIP:"), dashboard.QualitySetupScript)
	}
}

// Quality draws the data-quality monitoring page
func (r *Renderer) Quality(page dashboard.QualityPage) {
	r.Header("Data Quality Monitoring")

	r.SourceNote(page.EntityScores.Source)
	r.Warnings(page.EntityScores.Warnings)
	table := r.newTable([]string{"Entity", "Metrics", "Excellent", "Good", "Warning", "Critical", "Score", "Grade"})
	for _, score := range page.EntityScores.Rows {
		grade := dashboard.ScoreGrade(score.OverallQualityScore)
		table.Append([]string{
			score.EntityName,
			fmt.Sprintf("%d", score.TotalMetrics),
			fmt.Sprintf("%d", score.ExcellentCount),
			fmt.Sprintf("%d", score.GoodCount),
			fmt.Sprintf("%d", score.WarningCount),
			fmt.Sprintf("%d", score.CriticalCount),
			fmt.Sprintf("%.1f", score.OverallQualityScore),
			statusColor(grade)(grade),
		})
	}
	table.Render()

	fmt.Fprintln(r.out)
	r.SourceNote(page.Summary.Source)
	r.Warnings(page.Summary.Warnings)
	summary := r.newTable([]string{"Table", "Metric", "Value", "Status", "Measured"})
	for _, record := range dashboard.MetricBreakdown(page.Summary.Rows) {
		summary.Append([]string{
			record.TableName,
			record.MetricName,
			fmt.Sprintf("%.0f", record.MetricValue),
			statusColor(record.QualityStatus)(record.QualityStatus),
			record.MeasurementTime.Format("2006-01-02 15:04"),
		})
	}
	summary.Render()

	if len(page.Relationships.Rows) > 0 {
		fmt.Fprintln(r.out)
		rel := r.newTable([]string{"Relationship", "Customers", "Valid", "Missing", "Integrity", "Grade"})
		for _, metric := range page.Relationships.Rows {
			rel.Append([]string{
				metric.RelationshipType,
				fmt.Sprintf("%d", metric.TotalCustomers),
				fmt.Sprintf("%d", metric.ValidRelationships),
				fmt.Sprintf("%d", metric.MissingRelationships),
				percent(metric.IntegrityPercentage),
				statusColor(metric.IntegrityGrade)(metric.IntegrityGrade),
			})
		}
		rel.Render()
	}
	r.Warnings(page.Relationships.Warnings)

	if len(page.Issues.Rows) > 0 {
		fmt.Fprintln(r.out)
		issues := r.newTable([]string{"Issue", "Table", "Affected Records"})
		for _, issue := range page.Issues.Rows {
			count := fmt.Sprintf("%d", issue.AffectedRecords)
			if issue.AffectedRecords > 0 {
				count = color.RedString(count)
			}
			issues.Append([]string{issue.IssueType, issue.TableName, count})
		}
		issues.Render()
	}
	r.Warnings(page.Issues.Warnings)

	if len(page.RowCounts.Rows) > 0 {
		fmt.Fprintln(r.out)
		for _, count := range page.RowCounts.Rows {
			r.Metric(count.TableName, groupDigits(fmt.Sprintf("%d", count.RowCount))+" rows")
		}
	}
}

// Brokers draws the broker performance page
func (r *Renderer) Brokers(page dashboard.BrokerPage) {
	r.Header("Broker Performance Analytics")

	r.SourceNote(page.Matrix.Source)
	r.Warnings(page.Matrix.Warnings)
	matrix := r.newTable([]string{"Broker", "Name", "Tier", "Office", "Customers", "Premium Volume", "Avg Risk", "Satisfaction"})
	for _, broker := range page.Matrix.Rows {
		matrix.Append([]string{
			broker.BrokerID,
			broker.FirstName + " " + broker.LastName,
			tierColor(broker.Tier)(broker.Tier),
			broker.Office,
			fmt.Sprintf("%d", broker.TotalCustomers),
			money(broker.TotalPremiumVolume),
			fmt.Sprintf("%.1f", broker.AvgCustomerRisk),
			fmt.Sprintf("%.1f/5.0", broker.Satisfaction),
		})
	}
	matrix.Render()

	if len(page.Territories.Rows) > 0 {
		fmt.Fprintln(r.out)
		territories := r.newTable([]string{"Territory", "Brokers", "Customers", "Premium Volume", "Risk", "Fraud", "Satisfaction"})
		for _, territory := range page.Territories.Rows {
			territories.Append([]string{
				territory.Region,
				fmt.Sprintf("%d", territory.ActiveBrokers),
				fmt.Sprintf("%d", territory.TotalCustomers),
				money(territory.PremiumVolume),
				fmt.Sprintf("%.1f", territory.RiskScore),
				fmt.Sprintf("%d", territory.FraudCases),
				fmt.Sprintf("%.1f", territory.Satisfaction),
			})
		}
		territories.Render()
	}
	r.Warnings(page.Territories.Warnings)

	if len(page.Rankings.Rows) > 0 {
		fmt.Fprintln(r.out)
		rankings := r.newTable([]string{"Broker", "Tier", "Volume Rank", "Risk Rank", "Satisfaction Rank", "Claims Ratio"})
		for _, ranking := range page.Rankings.Rows {
			rankings.Append([]string{
				ranking.BrokerName,
				tierColor(ranking.Tier)(ranking.Tier),
				fmt.Sprintf("#%d", ranking.VolumeRank),
				fmt.Sprintf("#%d", ranking.RiskRank),
				fmt.Sprintf("#%d", ranking.SatisfactionRank),
				percent(ranking.ClaimsRatio),
			})
		}
		rankings.Render()
	}
	r.Warnings(page.Rankings.Warnings)
}

// BrokerDetail draws the per-broker drill-in
func (r *Renderer) BrokerDetail(detail dashboard.BrokerDetail, intelligence []dashboard.BrokerIntelligence) {
	r.Header("Broker Scorecard: " + detail.BrokerID)

	for _, intel := range intelligence {
		if intel.BrokerID != detail.BrokerID {
			continue
		}
		r.Metric("Performance Score", fmt.Sprintf("%.0f/300 (%s)",
			intel.Analysis.TotalScore, intel.Analysis.PerformanceTier))
		r.Metric("Satisfaction Component", fmt.Sprintf("%.0f", intel.Analysis.SatisfactionComponent))
		r.Metric("Experience Component", fmt.Sprintf("%.0f", intel.Analysis.ExperienceComponent))
		r.Metric("Training Component", fmt.Sprintf("%.0f", intel.Analysis.TrainingComponent))
		r.Metric("Portfolio Component", fmt.Sprintf("%.0f", intel.Analysis.PortfolioComponent))
		r.Metric("Risk Mgmt Component", fmt.Sprintf("%.0f", intel.Analysis.RiskManagementComponent))
		break
	}

	r.SourceNote(detail.Portfolio.Source)
	r.Warnings(detail.Portfolio.Warnings)
	if len(detail.Portfolio.Rows) > 0 {
		portfolio := r.newTable([]string{"Segment", "Customers", "Avg Risk", "Avg Premium", "Total Claims", "High Risk"})
		for _, segment := range detail.Portfolio.Rows {
			portfolio.Append([]string{
				segment.CustomerSegment,
				fmt.Sprintf("%d", segment.CustomerCount),
				fmt.Sprintf("%.1f", segment.AvgRiskScore),
				money(segment.AvgPremium),
				money(segment.TotalClaims),
				fmt.Sprintf("%d", segment.HighRiskCount),
			})
		}
		portfolio.Render()
	}

	r.Warnings(detail.RiskTrends.Warnings)
	if len(detail.RiskTrends.Rows) > 0 {
		fmt.Fprintln(r.out)
		trends := r.newTable([]string{"Risk Level", "Customers", "Avg Score", "Trajectory", "Confidence"})
		for _, trend := range detail.RiskTrends.Rows {
			trends.Append([]string{
				statusColor(trend.FinalRiskLevel)(trend.FinalRiskLevel),
				fmt.Sprintf("%d", trend.CustomerCount),
				fmt.Sprintf("%.1f", trend.AvgScore),
				trend.Trajectory.Trajectory,
				percent(trend.Trajectory.Confidence * 100),
			})
		}
		trends.Render()
	}
}

// Risk draws the risk analytics page
func (r *Renderer) Risk(page dashboard.RiskPage) {
	r.Header("Risk Analytics Intelligence")

	total := len(page.Dashboard.Rows)
	highRisk := 0
	var scoreSum, exposure float64
	for _, row := range page.Dashboard.Rows {
		if row.FinalRiskLevel == "HIGH" {
			highRisk++
		}
		scoreSum += row.CustomerRiskScore
		exposure += row.ClaimAmount
	}

	r.SourceNote(page.Dashboard.Source)
	r.Warnings(page.Dashboard.Warnings)
	r.Metric("Total Customers", groupDigits(fmt.Sprintf("%d", total)))
	if total > 0 {
		r.Metric("High Risk Customers", fmt.Sprintf("%d (%s)",
			highRisk, percent(float64(highRisk)*100/float64(total))))
		r.Metric("Average Risk Score", fmt.Sprintf("%.1f", scoreSum/float64(total)))
	}
	r.Metric("Total Exposure", money(exposure))

	if len(page.Profiles.Rows) > 0 {
		fmt.Fprintln(r.out)
		profiles := r.newTable([]string{"Segment", "Region", "Customers", "Avg Risk", "High", "Medium", "Low", "Claims"})
		for _, profile := range page.Profiles.Rows {
			profiles.Append([]string{
				profile.CustomerSegment,
				profile.CustomerRegion,
				fmt.Sprintf("%d", profile.CustomerCount),
				fmt.Sprintf("%.1f", profile.AvgRiskScore),
				fmt.Sprintf("%d", profile.HighRiskCount),
				fmt.Sprintf("%d", profile.MediumRiskCount),
				fmt.Sprintf("%d", profile.LowRiskCount),
				money(profile.TotalClaims),
			})
		}
		profiles.Render()
	}
	r.Warnings(page.Profiles.Warnings)

	if len(page.Geography.Rows) > 0 {
		fmt.Fprintln(r.out)
		geography := r.newTable([]string{"Region", "Customers", "Avg Risk", "High Risk", "Brokers", "Avg Premium", "Claims"})
		for _, region := range page.Geography.Rows {
			geography.Append([]string{
				region.Region,
				fmt.Sprintf("%d", region.TotalCustomers),
				fmt.Sprintf("%.1f", region.AvgRisk),
				fmt.Sprintf("%d", region.HighRiskCount),
				fmt.Sprintf("%d", region.ActiveBrokers),
				money(region.AvgPremium),
				money(region.TotalClaims),
			})
		}
		geography.Render()
	}
	r.Warnings(page.Geography.Warnings)

	if len(page.Correlation.Rows) > 0 {
		fmt.Fprintln(r.out)
		correlation := r.newTable([]string{"Broker", "Tier", "Customers", "Portfolio Risk", "High Risk", "Avg Premium", "Performance"})
		for _, broker := range page.Correlation.Rows {
			correlation.Append([]string{
				broker.BrokerID,
				tierColor(broker.BrokerTier)(broker.BrokerTier),
				fmt.Sprintf("%d", broker.ManagedCustomers),
				fmt.Sprintf("%.1f", broker.PortfolioRiskScore),
				fmt.Sprintf("%d", broker.HighRiskCustomers),
				money(broker.AvgPortfolioPremium),
				fmt.Sprintf("%.0f (%s)", broker.Analysis.TotalScore, broker.Analysis.PerformanceTier),
			})
		}
		correlation.Render()
	}
	r.Warnings(page.Correlation.Warnings)
}

// Governance draws the governance and compliance page
func (r *Renderer) Governance(page dashboard.GovernancePage, access dashboard.Result[dashboard.AccessPattern]) {
	r.Header("Data Governance & Compliance")

	score := dashboard.ComplianceScore(page.PolicyEnforcement.Rows)
	grade := dashboard.StatusCritical
	switch {
	case score >= 95:
		grade = dashboard.StatusExcellent
	case score >= 80:
		grade = dashboard.StatusGood
	case score >= 60:
		grade = dashboard.StatusWarning
	}
	r.Metric("Compliance Score", statusColor(grade)(percent(score)))

	r.SourceNote(page.PolicyEnforcement.Source)
	r.Warnings(page.PolicyEnforcement.Warnings)
	if len(page.PolicyEnforcement.Rows) > 0 {
		enforcement := r.newTable([]string{"Policy", "Entity", "Status", "Score", "Violations", "Category"})
		for _, entry := range page.PolicyEnforcement.Rows {
			enforcement.Append([]string{
				entry.PolicyName,
				entry.EntityName,
				statusColor(entry.EnforcementStatus)(entry.EnforcementStatus),
				percent(entry.ComplianceScore),
				fmt.Sprintf("%d", entry.ViolationCount),
				entry.PolicyCategory,
			})
		}
		enforcement.Render()
	}

	policies := append([]dashboard.GovernancePolicy{}, page.MaskingPolicies.Rows...)
	policies = append(policies, page.RowAccessPolicies.Rows...)
	if len(policies) > 0 {
		fmt.Fprintln(r.out)
		table := r.newTable([]string{"Policy", "Kind", "Created", "Comment"})
		for _, policy := range policies {
			table.Append([]string{
				policy.PolicyName,
				policy.PolicyKind,
				policy.Created.Format("2006-01-02"),
				policy.Comment,
			})
		}
		table.Render()
	}
	r.Warnings(page.MaskingPolicies.Warnings)
	r.Warnings(page.RowAccessPolicies.Warnings)

	if len(page.EntityGovernance.Rows) > 0 {
		fmt.Fprintln(r.out)
		entities := r.newTable([]string{"Entity", "Records", "Protected", "Referenced", "Status"})
		for _, entity := range page.EntityGovernance.Rows {
			entities.Append([]string{
				entity.EntityName,
				fmt.Sprintf("%d", entity.TotalRecords),
				fmt.Sprintf("%d", entity.ProtectedRecords),
				fmt.Sprintf("%d", entity.ReferencedRecords),
				entity.GovernanceStatus,
			})
		}
		entities.Render()
	}
	r.Warnings(page.EntityGovernance.Warnings)

	r.Warnings(access.Warnings)
	if len(access.Rows) > 0 {
		fmt.Fprintln(r.out)
		patterns := r.newTable([]string{"Hour", "User", "Role", "Schema", "Type", "Queries", "Elapsed"})
		for _, pattern := range access.Rows {
			patterns.Append([]string{
				pattern.AccessHour.Format("01-02 15:00"),
				pattern.UserName,
				pattern.RoleName,
				pattern.SchemaName,
				pattern.QueryType,
				fmt.Sprintf("%d", pattern.QueryCount),
				fmt.Sprintf("%dms", pattern.TotalTimeMS),
			})
		}
		patterns.Render()
	}
}

// Drilldown draws the problem-record inspection: rows first, then the SQL
// that produced them.
func (r *Renderer) Drilldown(records drilldown.Records, query string, warnings []string) {
	r.Header("Problem Records")
	r.Warnings(warnings)

	if records.Empty() {
		fmt.Fprintf(r.out, "%s no problematic records found\n", color.GreenString("OK:"))
	} else {
		table := r.newTable(records.Columns)
		for _, row := range records.Rows {
			cells := make([]string, len(records.Columns))
			for i, column := range records.Columns {
				if row[column] == nil {
					cells[i] = ColorDim("NULL")
				} else {
					cells[i] = fmt.Sprintf("%v", row[column])
				}
			}
			table.Append(cells)
		}
		table.Render()
		fmt.Fprintf(r.out, "\n%d records shown\n", len(records.Rows))
	}

	fmt.Fprintf(r.out, "\n%s\n%s\n", ColorBold("Query used:"), ColorDim(strings.TrimSpace(query)))
}
