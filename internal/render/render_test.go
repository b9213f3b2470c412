package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"snowdash/internal/dashboard"
	"snowdash/internal/drilldown"
)

func TestGroupDigits(t *testing.T) {
	assert.Equal(t, "0", groupDigits("0"))
	assert.Equal(t, "999", groupDigits("999"))
	assert.Equal(t, "1,000", groupDigits("1000"))
	assert.Equal(t, "2,400,000", groupDigits("2400000"))
	assert.Equal(t, "-15,000", groupDigits("-15000"))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$2,400,000", money(2400000))
	assert.Equal(t, "$0", money(0))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "98.5%", percent(98.5))
}

func TestQualityPageRender(t *testing.T) {
	var buf bytes.Buffer
	r := NewWriter(&buf)

	page := dashboard.QualityPage{
		EntityScores: dashboard.Live([]dashboard.EntityScore{
			{EntityName: "CUSTOMERS", TotalMetrics: 5, CriticalCount: 1, OverallQualityScore: 80.0},
		}),
		Summary: dashboard.Live([]dashboard.MetricRecord{
			{
				TableName:       "CUSTOMERS_RAW",
				MetricName:      "INVALID_CUSTOMER_AGE_COUNT",
				MetricValue:     7,
				QualityStatus:   dashboard.StatusCritical,
				MeasurementTime: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
			},
		}),
	}

	r.Quality(page)
	out := buf.String()

	assert.Contains(t, out, "Data Quality Monitoring")
	assert.Contains(t, out, "CUSTOMERS")
	assert.Contains(t, out, "INVALID_CUSTOMER_AGE_COUNT")
	assert.Contains(t, out, "GOOD")
}

func TestSourceNoteFallback(t *testing.T) {
	var buf bytes.Buffer
	r := NewWriter(&buf)

	r.SourceNote(dashboard.SourceFallback)
	r.SourceNote(dashboard.SourceEmpty)
	r.SourceNote(dashboard.SourceLive)

	out := buf.String()
	assert.Contains(t, out, "FALLBACK:")
	assert.Contains(t, out, "EMPTY:")
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestDrilldownRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	r := NewWriter(&buf)

	r.Drilldown(drilldown.Records{}, "SELECT 1", []string{"partial results"})
	out := buf.String()

	assert.Contains(t, out, "no problematic records found")
	assert.Contains(t, out, "WARNING: partial results")
	assert.Contains(t, out, "Query used:")
	assert.Contains(t, out, "SELECT 1")
}

func TestDrilldownRenderRows(t *testing.T) {
	var buf bytes.Buffer
	r := NewWriter(&buf)

	records := drilldown.Records{
		Columns: []string{"CUSTOMER_ID", "AGE"},
		Rows: []map[string]interface{}{
			{"CUSTOMER_ID": "CUST001", "AGE": int64(90)},
			{"CUSTOMER_ID": "CUST002", "AGE": nil},
		},
	}

	r.Drilldown(records, "SELECT * FROM CUSTOMERS_RAW", nil)
	out := buf.String()

	assert.Contains(t, out, "CUST001")
	assert.Contains(t, out, "90")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "2 records shown")
}
