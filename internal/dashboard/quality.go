package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"snowdash/internal/cache"
	"snowdash/internal/observability"
	"snowdash/internal/snowflake"
	"snowdash/pkg/errors"
	"snowdash/pkg/models"
)

const qualityCacheKey = "page:quality"

// QualitySetupScript is named in diagnostics when the monitoring views are
// missing from the warehouse.
const QualitySetupScript = "01_DATA_QUALITY.sql"

// QualityViews are the views the monitoring page depends on
var QualityViews = []string{
	"QUALITY_MONITORING_SUMMARY",
	"ENTITY_QUALITY_SCORES",
}

// QualityPage is the full data-quality payload: every section fetched
// independently so one broken view does not blank the page.
type QualityPage struct {
	EntityScores  Result[EntityScore]        `json:"entity_scores"`
	Summary       Result[MetricRecord]       `json:"quality_summary"`
	Relationships Result[RelationshipMetric] `json:"relationship_metrics"`
	Issues        Result[QualityIssue]       `json:"quality_issues"`
	DMFStatus     Result[DMFStatus]          `json:"dmf_status"`
	RowCounts     Result[RowCount]           `json:"row_counts"`
}

// QualityStore fetches and memoizes the data-quality page
type QualityStore struct {
	svc    *snowflake.Service
	cache  *cache.Cache
	wh     models.Warehouse
	ttl    time.Duration
	logger *observability.Logger
}

// NewQualityStore creates a quality store with the page memoization window
func NewQualityStore(svc *snowflake.Service, c *cache.Cache, wh models.Warehouse, ttl time.Duration) *QualityStore {
	return &QualityStore{
		svc:    svc,
		cache:  c,
		wh:     wh,
		ttl:    ttl,
		logger: observability.Default().WithFields(map[string]interface{}{"store": "quality"}),
	}
}

// FetchAll returns the quality page, reusing a cached copy inside the TTL.
// The fill runs detached from the caller's context: the cached page is
// shared across clients, so one client disconnecting mid-fetch must not
// poison it with a degraded copy.
func (s *QualityStore) FetchAll(ctx context.Context) QualityPage {
	value, _ := s.cache.Do(qualityCacheKey, s.ttl, func() (interface{}, error) {
		return s.fetch(context.WithoutCancel(ctx)), nil
	})
	return value.(QualityPage)
}

// Refresh discards the cached page and fetches a fresh copy, so warm
// passes always hit the warehouse instead of a still-valid cache entry.
func (s *QualityStore) Refresh(ctx context.Context) QualityPage {
	s.cache.Delete(qualityCacheKey)
	return s.FetchAll(ctx)
}

func (s *QualityStore) fetch(ctx context.Context) QualityPage {
	started := time.Now()
	page := QualityPage{
		EntityScores:  s.fetchEntityScores(ctx),
		Summary:       s.fetchSummary(ctx),
		Relationships: s.fetchRelationships(ctx),
		Issues:        s.fetchIssues(ctx),
		DMFStatus:     s.fetchDMFStatus(),
	}
	page.RowCounts = rowCountsOf(page.Summary)

	s.logger.InfoWithFields("quality page fetched", map[string]interface{}{
		"duration_ms": time.Since(started).Milliseconds(),
		"degraded":    page.EntityScores.Degraded() || page.Summary.Degraded(),
	})
	return page
}

func (s *QualityStore) rawObject(name string) string {
	return fmt.Sprintf("%s.%s.%s", s.wh.Database, s.wh.RawSchema, name)
}

func (s *QualityStore) fetchEntityScores(ctx context.Context) Result[EntityScore] {
	query := fmt.Sprintf(`SELECT entity_name, total_metrics, excellent_count, good_count,
		warning_count, critical_count, overall_quality_score, last_measured
		FROM %s ORDER BY overall_quality_score DESC`, s.rawObject("ENTITY_QUALITY_SCORES"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		warnings := []string{fmt.Sprintf("Could not fetch entity quality scores: %v", err)}
		warnings = append(warnings, s.viewDiagnostic(ctx, "ENTITY_QUALITY_SCORES")...)
		return Fallback(fallbackEntityScores(), warnings...)
	}
	defer rows.Close()

	var scores []EntityScore
	for rows.Next() {
		var (
			entity                  sql.NullString
			total, exc, good, warn  sql.NullInt64
			crit                    sql.NullInt64
			score                   sql.NullFloat64
			measured                sql.NullTime
		)
		if err := rows.Scan(&entity, &total, &exc, &good, &warn, &crit, &score, &measured); err != nil {
			return Empty[EntityScore](fmt.Sprintf("Entity score row scan failed: %v", err))
		}
		scores = append(scores, EntityScore{
			EntityName:          strOf(entity),
			TotalMetrics:        intOf(total),
			ExcellentCount:      intOf(exc),
			GoodCount:           intOf(good),
			WarningCount:        intOf(warn),
			CriticalCount:       intOf(crit),
			OverallQualityScore: floatOf(score),
			LastMeasured:        timeOf(measured),
		})
	}
	if err := rows.Err(); err != nil {
		return Fallback(fallbackEntityScores(), fmt.Sprintf("Entity score iteration failed: %v", err))
	}
	return Live(scores)
}

// fallbackEntityScores is the placeholder shown before the quality setup
// script has populated the monitoring views.
func fallbackEntityScores() []EntityScore {
	now := time.Now()
	placeholder := func(name string) EntityScore {
		return EntityScore{
			EntityName:          name,
			TotalMetrics:        3,
			CriticalCount:       3,
			OverallQualityScore: 20.0,
			LastMeasured:        now,
		}
	}
	return []EntityScore{placeholder("CUSTOMERS_RAW"), placeholder("CLAIMS_RAW")}
}

func (s *QualityStore) fetchSummary(ctx context.Context) Result[MetricRecord] {
	query := fmt.Sprintf(`SELECT table_name, metric_name, metric_value, quality_status, measurement_time
		FROM %s ORDER BY measurement_time DESC`, s.rawObject("QUALITY_MONITORING_SUMMARY"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		warnings := []string{fmt.Sprintf("Could not fetch quality monitoring summary: %v", err)}
		warnings = append(warnings, s.viewDiagnostic(ctx, "QUALITY_MONITORING_SUMMARY")...)
		return Fallback(fallbackSummary(), warnings...)
	}
	defer rows.Close()

	var records []MetricRecord
	for rows.Next() {
		var (
			table, metric, status sql.NullString
			value                 sql.NullFloat64
			measured              sql.NullTime
		)
		if err := rows.Scan(&table, &metric, &value, &status, &measured); err != nil {
			return Empty[MetricRecord](fmt.Sprintf("Quality summary row scan failed: %v", err))
		}
		records = append(records, MetricRecord{
			TableName:       strOf(table),
			MetricName:      strOf(metric),
			MetricValue:     floatOf(value),
			QualityStatus:   strOf(status),
			MeasurementTime: timeOf(measured),
		})
	}
	if err := rows.Err(); err != nil {
		return Fallback(fallbackSummary(), fmt.Sprintf("Quality summary iteration failed: %v", err))
	}
	return Live(records)
}

func fallbackSummary() []MetricRecord {
	now := time.Now()
	return []MetricRecord{
		{TableName: "CUSTOMERS_RAW", MetricName: "NULL_COUNT", MetricValue: 0, QualityStatus: StatusExcellent, MeasurementTime: now},
		{TableName: "CLAIMS_RAW", MetricName: "DUPLICATE_COUNT", MetricValue: 5, QualityStatus: StatusWarning, MeasurementTime: now},
	}
}

func (s *QualityStore) fetchRelationships(ctx context.Context) Result[RelationshipMetric] {
	query := fmt.Sprintf(`SELECT
		'CUSTOMER_CLAIMS_INTEGRITY' as relationship_type,
		COUNT(DISTINCT c.POLICY_NUMBER) as total_customers,
		COUNT(DISTINCT cl.POLICY_NUMBER) as valid_relationships,
		COUNT(DISTINCT c.POLICY_NUMBER) - COUNT(DISTINCT cl.POLICY_NUMBER) as missing_relationships,
		ROUND((COUNT(DISTINCT cl.POLICY_NUMBER) * 100.0) / COUNT(DISTINCT c.POLICY_NUMBER), 2) as integrity_percentage,
		CASE
			WHEN ROUND((COUNT(DISTINCT cl.POLICY_NUMBER) * 100.0) / COUNT(DISTINCT c.POLICY_NUMBER), 2) >= 98 THEN 'EXCELLENT'
			WHEN ROUND((COUNT(DISTINCT cl.POLICY_NUMBER) * 100.0) / COUNT(DISTINCT c.POLICY_NUMBER), 2) >= 95 THEN 'GOOD'
			WHEN ROUND((COUNT(DISTINCT cl.POLICY_NUMBER) * 100.0) / COUNT(DISTINCT c.POLICY_NUMBER), 2) >= 90 THEN 'NEEDS_ATTENTION'
			ELSE 'CRITICAL'
		END as integrity_grade
		FROM %s c
		LEFT JOIN %s cl ON c.POLICY_NUMBER = cl.POLICY_NUMBER`,
		s.rawObject("CUSTOMERS_RAW"), s.rawObject("CLAIMS_RAW"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[RelationshipMetric](fmt.Sprintf("Could not fetch relationship metrics: %v", err))
	}
	defer rows.Close()

	var metrics []RelationshipMetric
	for rows.Next() {
		var (
			relType, grade       sql.NullString
			total, valid, missed sql.NullInt64
			pct                  sql.NullFloat64
		)
		if err := rows.Scan(&relType, &total, &valid, &missed, &pct, &grade); err != nil {
			return Empty[RelationshipMetric](fmt.Sprintf("Relationship metric scan failed: %v", err))
		}
		metrics = append(metrics, RelationshipMetric{
			RelationshipType:     strOf(relType),
			TotalCustomers:       intOf(total),
			ValidRelationships:   intOf(valid),
			MissingRelationships: intOf(missed),
			IntegrityPercentage:  floatOf(pct),
			IntegrityGrade:       strOf(grade),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[RelationshipMetric](fmt.Sprintf("Relationship metric iteration failed: %v", err))
	}
	return Live(metrics)
}

func (s *QualityStore) fetchIssues(ctx context.Context) Result[QualityIssue] {
	query := fmt.Sprintf(`SELECT 'NULL_POLICY_NUMBERS_CUSTOMERS' as issue_type, COUNT(*) as affected_records, 'CUSTOMERS_RAW' as table_name FROM %s
		UNION ALL
		SELECT 'DUPLICATE_POLICY_NUMBERS_CUSTOMERS', COUNT(*), 'CUSTOMERS_RAW' FROM %s
		UNION ALL
		SELECT 'NULL_POLICY_NUMBERS_CLAIMS', COUNT(*), 'CLAIMS_RAW' FROM %s
		UNION ALL
		SELECT 'DUPLICATE_POLICY_NUMBERS_CLAIMS', COUNT(*), 'CLAIMS_RAW' FROM %s`,
		s.rawObject("CUSTOMERS_WITH_NULL_POLICY_NUMBERS"),
		s.rawObject("CUSTOMERS_WITH_DUPLICATE_POLICIES"),
		s.rawObject("CLAIMS_WITH_NULL_POLICY_NUMBERS"),
		s.rawObject("CLAIMS_WITH_DUPLICATE_POLICIES"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[QualityIssue](fmt.Sprintf("Could not fetch quality issues: %v", err))
	}
	defer rows.Close()

	var issues []QualityIssue
	for rows.Next() {
		var (
			issueType, table sql.NullString
			affected         sql.NullInt64
		)
		if err := rows.Scan(&issueType, &affected, &table); err != nil {
			return Empty[QualityIssue](fmt.Sprintf("Quality issue scan failed: %v", err))
		}
		issues = append(issues, QualityIssue{
			IssueType:       strOf(issueType),
			AffectedRecords: intOf(affected),
			TableName:       strOf(table),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[QualityIssue](fmt.Sprintf("Quality issue iteration failed: %v", err))
	}
	return Live(issues)
}

// fetchDMFStatus reports the configured metric functions. The schedule
// configuration is fixed by the setup script, so this is a static dataset
// rather than an INFORMATION_SCHEMA round trip.
func (s *QualityStore) fetchDMFStatus() Result[DMFStatus] {
	configured := func(table, metric string) DMFStatus {
		return DMFStatus{
			TableName:      table,
			MetricName:     metric,
			Schedule:       "5 minute",
			ScheduleStatus: "STARTED",
		}
	}
	return Live([]DMFStatus{
		configured("CUSTOMERS_RAW", "INVALID_CUSTOMER_AGE_COUNT"),
		configured("CUSTOMERS_RAW", "INVALID_BROKER_ID_COUNT"),
		configured("CUSTOMERS_RAW", "SNOWFLAKE.CORE.NULL_COUNT"),
		configured("CUSTOMERS_RAW", "SNOWFLAKE.CORE.DUPLICATE_COUNT"),
		configured("CUSTOMERS_RAW", "SNOWFLAKE.CORE.ROW_COUNT"),
		configured("CLAIMS_RAW", "SNOWFLAKE.CORE.NULL_COUNT"),
		configured("CLAIMS_RAW", "SNOWFLAKE.CORE.DUPLICATE_COUNT"),
		configured("CLAIMS_RAW", "SNOWFLAKE.CORE.ROW_COUNT"),
	})
}

// rowCountsOf extracts the volume metrics from an already-fetched summary
// instead of re-querying the view.
func rowCountsOf(summary Result[MetricRecord]) Result[RowCount] {
	var counts []RowCount
	for _, record := range summary.Rows {
		if record.MetricName != RowCountMetric {
			continue
		}
		counts = append(counts, RowCount{
			TableName:       record.TableName,
			RowCount:        int64(record.MetricValue),
			MeasurementTime: record.MeasurementTime,
		})
	}

	result := Live(counts)
	if summary.Degraded() {
		result.Source = summary.Source
		result = result.WithWarnings(summary.Warnings...)
	}
	return result
}

// viewDiagnostic probes whether the failing view exists and turns the
// outcome into an actionable message.
func (s *QualityStore) viewDiagnostic(ctx context.Context, view string) []string {
	exists, err := s.svc.ViewExists(ctx, s.wh.RawSchema, view)
	if err != nil {
		return []string{fmt.Sprintf("Cannot check %s existence: %v", view, err)}
	}
	if !exists {
		return []string{errors.ViewMissingError(view, QualitySetupScript).Error()}
	}
	return []string{fmt.Sprintf("The %s view exists but the query failed. Check permissions and data.", view)}
}

// SummaryFilter narrows the quality summary the way the page selectors do
type SummaryFilter struct {
	Entity string
	Status string
	Recent time.Duration
}

// Apply filters the records in place-order, leaving the input untouched
func (f SummaryFilter) Apply(records []MetricRecord) []MetricRecord {
	filtered := make([]MetricRecord, 0, len(records))
	cutoff := time.Time{}
	if f.Recent > 0 {
		cutoff = time.Now().Add(-f.Recent)
	}

	for _, record := range records {
		if f.Entity != "" && !strings.EqualFold(record.TableName, f.Entity) {
			continue
		}
		if f.Status != "" && !strings.EqualFold(record.QualityStatus, f.Status) {
			continue
		}
		if !cutoff.IsZero() && record.MeasurementTime.Before(cutoff) {
			continue
		}
		filtered = append(filtered, record)
	}
	return filtered
}

// MetricBreakdown drops the volume metric and unknown statuses from a
// summary, leaving only rows that belong in the status breakdown.
func MetricBreakdown(records []MetricRecord) []MetricRecord {
	breakdown := make([]MetricRecord, 0, len(records))
	for _, record := range records {
		if record.MetricName == RowCountMetric {
			continue
		}
		if record.QualityStatus == "" || record.QualityStatus == StatusUnknown {
			continue
		}
		breakdown = append(breakdown, record)
	}
	return breakdown
}
