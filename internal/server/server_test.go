package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowdash/internal/snowflake"
	"snowdash/pkg/models"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	config := models.Config{}
	config.ApplyDefaults()

	svc := snowflake.NewServiceWithDB(db)
	s := New(svc, config)
	t.Cleanup(s.Cache().Stop)
	return s, mock
}

func decodeEnvelope(t *testing.T, body string) map[string]interface{} {
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &envelope))
	return envelope
}

func TestHealthEnvelope(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec.Body.String())
	assert.Equal(t, float64(0), envelope["status"])
	assert.Equal(t, "ok", envelope["msg"])
}

func TestDrilldownRequiresParams(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/quality/drilldown?table=CUSTOMERS_RAW", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec.Body.String())
	assert.Contains(t, envelope["msg"], "table and metric")
}

func TestDrilldownReturnsRecordsAndQuery(t *testing.T) {
	s, mock := newTestServer(t)

	mock.ExpectQuery("SELECT \\* FROM INSURANCE_WORKSHOP_DB.RAW_DATA.CUSTOMERS_RAW").
		WillReturnRows(sqlmock.NewRows([]string{"POLICY_NUMBER", "AGE"}).
			AddRow("POL-005", 90))

	req := httptest.NewRequest(http.MethodGet,
		"/api/quality/drilldown?table=CUSTOMERS_RAW&metric=INVALID_CUSTOMER_AGE_COUNT&limit=25", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec.Body.String())
	data := envelope["data"].(map[string]interface{})

	query := data["query"].(string)
	assert.Contains(t, query, "AGE < 18 OR AGE > 85")
	assert.Contains(t, query, "LIMIT 25")

	records := data["records"].(map[string]interface{})
	rows := records["rows"].([]interface{})
	require.Len(t, rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrilldownExportHeaders(t *testing.T) {
	s, mock := newTestServer(t)

	mock.ExpectQuery("SELECT \\* FROM INSURANCE_WORKSHOP_DB.RAW_DATA.CUSTOMERS_WITH_NULL_POLICY_NUMBERS").
		WillReturnRows(sqlmock.NewRows([]string{"POLICY_NUMBER"}).AddRow(nil))

	req := httptest.NewRequest(http.MethodGet,
		"/api/quality/drilldown/export?table=CUSTOMERS_RAW&metric=NULL_COUNT", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	disposition := rec.Header().Get("Content-Disposition")
	assert.Contains(t, disposition, "attachment")
	assert.Contains(t, disposition, "problematic_records_CUSTOMERS_RAW_NULL_COUNT_")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "POLICY_NUMBER"))
}

func TestQualityEndpointSurfacesDegradation(t *testing.T) {
	s, mock := newTestServer(t)

	// Every warehouse query fails; the page still renders with fallbacks
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 12; i++ {
		mock.ExpectQuery(".*").WillReturnError(assert.AnError)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/quality/", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec.Body.String())
	data := envelope["data"].(map[string]interface{})
	scores := data["entity_scores"].(map[string]interface{})

	assert.Equal(t, "fallback", scores["source"])
	assert.NotEmpty(t, scores["warnings"])
	rows := scores["rows"].([]interface{})
	assert.Len(t, rows, 2)
}

func TestRefreshClearsCache(t *testing.T) {
	s, mock := newTestServer(t)

	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 40; i++ {
		mock.ExpectQuery(".*").WillReturnError(assert.AnError)
	}

	s.Cache().Set("sentinel", "stale", 0)

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := s.Cache().Get("sentinel")
	assert.False(t, ok)

	envelope := decodeEnvelope(t, rec.Body.String())
	data := envelope["data"].(map[string]interface{})
	degraded := data["degraded"].(map[string]interface{})
	assert.Equal(t, true, degraded["quality"])
}

func TestReadyReportsWarehouseDown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	config := models.Config{}
	config.ApplyDefaults()
	s := New(snowflake.NewServiceWithDB(db), config)
	t.Cleanup(s.Cache().Stop)

	mock.ExpectPing().WillReturnError(assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
