// Package drilldown resolves a (table, metric) pair from the quality
// summary into the exact record-level query behind the metric, so the
// flagged rows can be inspected and exported.
package drilldown

import (
	"context"
	"fmt"
	"strings"
	"time"

	"snowdash/internal/observability"
	"snowdash/internal/snowflake"
	"snowdash/pkg/models"
)

const (
	// DefaultLimit is used when no row limit is requested
	DefaultLimit = 50
	// MaxLimit caps drill-down result sets
	MaxLimit = 100
)

// ClampLimit normalizes a requested row limit into [1, MaxLimit], with the
// default for zero and negative values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Resolver maps quality metrics to their record-level queries and runs them
type Resolver struct {
	svc    *snowflake.Service
	wh     models.Warehouse
	logger *observability.Logger
}

// NewResolver creates a drill-down resolver over the raw schema
func NewResolver(svc *snowflake.Service, wh models.Warehouse) *Resolver {
	return &Resolver{
		svc:    svc,
		wh:     wh,
		logger: observability.Default().WithFields(map[string]interface{}{"component": "drilldown"}),
	}
}

func (r *Resolver) rawObject(name string) string {
	return fmt.Sprintf("%s.%s.%s", r.wh.Database, r.wh.RawSchema, name)
}

// BuildQuery resolves a (table, metric) pair into the record-level query
// that reproduces the metric's definition. Matching is case-insensitive.
// An unmatched pair degrades to a plain table preview and reports
// matched=false so callers can attach a warning.
func (r *Resolver) BuildQuery(table, metric string, limit int) (string, bool) {
	limit = ClampLimit(limit)
	tableUpper := strings.ToUpper(strings.TrimSpace(table))
	metricUpper := strings.ToUpper(strings.TrimSpace(metric))

	switch tableUpper {
	case "CUSTOMERS_RAW":
		switch metricUpper {
		case "INVALID_CUSTOMER_AGE_COUNT":
			return fmt.Sprintf(`SELECT * FROM %s
WHERE AGE IS NOT NULL AND (AGE < 18 OR AGE > 85)
ORDER BY AGE DESC
LIMIT %d`, r.rawObject("CUSTOMERS_RAW"), limit), true
		case "INVALID_BROKER_ID_COUNT":
			return fmt.Sprintf(`SELECT * FROM %s
WHERE BROKER_ID IS NOT NULL
  AND NOT REGEXP_LIKE(BROKER_ID, '^BRK[0-9]{3}$')
ORDER BY POLICY_NUMBER
LIMIT %d`, r.rawObject("CUSTOMERS_RAW"), limit), true
		case "SNOWFLAKE.CORE.NULL_COUNT", "NULL_COUNT":
			return r.scanViewQuery("CUSTOMERS_WITH_NULL_POLICY_NUMBERS", limit), true
		case "SNOWFLAKE.CORE.DUPLICATE_COUNT", "DUPLICATE_COUNT":
			return r.scanViewQuery("CUSTOMERS_WITH_DUPLICATE_POLICIES", limit), true
		}
	case "CLAIMS_RAW":
		switch metricUpper {
		case "SNOWFLAKE.CORE.NULL_COUNT", "NULL_COUNT":
			return r.scanViewQuery("CLAIMS_WITH_NULL_POLICY_NUMBERS", limit), true
		case "SNOWFLAKE.CORE.DUPLICATE_COUNT", "DUPLICATE_COUNT":
			return r.scanViewQuery("CLAIMS_WITH_DUPLICATE_POLICIES", limit), true
		}
	}

	return fmt.Sprintf(`SELECT * FROM %s
ORDER BY 1
LIMIT %d`, r.rawObject(tableUpper), limit), false
}

func (r *Resolver) scanViewQuery(view string, limit int) string {
	return fmt.Sprintf(`SELECT * FROM %s
ORDER BY POLICY_NUMBER
LIMIT %d`, r.rawObject(view), limit)
}

// FetchProblemRecords resolves and executes the drill-down query. The
// returned query text is always populated so the caller can show the SQL
// alongside the rows; failures come back as an empty record set with a
// diagnostic, never as an error.
func (r *Resolver) FetchProblemRecords(ctx context.Context, table, metric string, limit int) (Records, string, []string) {
	var warnings []string

	query, matched := r.BuildQuery(table, metric, limit)
	if !matched {
		warnings = append(warnings, fmt.Sprintf(
			"No specific query logic found for %s + %s. Using fallback query.", table, metric))
	}

	rows, err := r.svc.Query(ctx, query)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf(
			"Error fetching problematic records for %s on %s: %v", metric, table, err))
		r.logger.WarnWithFields("drilldown query failed", map[string]interface{}{
			"table":  table,
			"metric": metric,
		})
		return Records{}, query, warnings
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf(
			"Error reading problematic records for %s on %s: %v", metric, table, err))
		return Records{}, query, warnings
	}
	return records, query, warnings
}

// Records is an arbitrary SELECT * result: ordered columns plus row maps
type Records struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// Empty reports whether no rows were returned
func (r Records) Empty() bool {
	return len(r.Rows) == 0
}

func collectRecords(rows *snowflake.Rows) (Records, error) {
	columns, err := rows.Columns()
	if err != nil {
		return Records{}, err
	}

	records := Records{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		targets := make([]interface{}, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return Records{}, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		records.Rows = append(records.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Records{}, err
	}
	return records, nil
}

// Drivers hand back []byte for text columns; convert so JSON and CSV
// output stays readable.
func normalizeValue(value interface{}) interface{} {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}

// ExportFilename names a CSV export after the table, metric, and moment of
// extraction. Metric names may contain dots (SNOWFLAKE.CORE.*), which are
// kept as-is.
func ExportFilename(table, metric string, now time.Time) string {
	return fmt.Sprintf("problematic_records_%s_%s_%s.csv",
		table, metric, now.Format("20060102_150405"))
}
