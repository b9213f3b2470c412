package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowdash/internal/cache"
	"snowdash/internal/snowflake"
	"snowdash/pkg/models"
)

func newGovernanceStore(t *testing.T) (*GovernanceStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := cache.New(time.Minute)
	t.Cleanup(c.Stop)

	svc := snowflake.NewServiceWithDB(db)
	return NewGovernanceStore(svc, c, models.DefaultWarehouse(), time.Minute, 2*time.Minute), mock
}

func TestComplianceScore(t *testing.T) {
	entries := []PolicyEnforcement{
		{EnforcementStatus: "ENFORCED"},
		{EnforcementStatus: "ENFORCED"},
		{EnforcementStatus: "VIOLATED"},
		{EnforcementStatus: "PENDING"},
	}

	assert.Equal(t, 50.0, ComplianceScore(entries))
}

func TestComplianceScoreEmpty(t *testing.T) {
	assert.Equal(t, 0.0, ComplianceScore(nil))
	assert.Equal(t, 0.0, ComplianceScore([]PolicyEnforcement{}))
}

func TestComplianceScoreAllEnforced(t *testing.T) {
	entries := []PolicyEnforcement{
		{EnforcementStatus: "ENFORCED"},
		{EnforcementStatus: "ENFORCED"},
	}

	assert.Equal(t, 100.0, ComplianceScore(entries))
}

func TestFetchPolicyEnforcementLive(t *testing.T) {
	store, mock := newGovernanceStore(t)

	evaluated := time.Now()
	mock.ExpectQuery("FROM INSURANCE_WORKSHOP_DB.GOVERNANCE.POLICY_ENFORCEMENT_LOG").
		WillReturnRows(sqlmock.NewRows([]string{
			"POLICY_NAME", "ENTITY_TYPE", "ENTITY_NAME", "ENFORCEMENT_STATUS",
			"LAST_EVALUATED", "COMPLIANCE_SCORE", "VIOLATION_COUNT", "POLICY_CATEGORY",
		}).AddRow("PII_MASK", "TABLE", "CUSTOMERS_RAW", "ENFORCED", evaluated, 98.5, 0, "MASKING"))

	result := store.fetchPolicyEnforcement(context.Background())

	require.Len(t, result.Rows, 1)
	assert.Equal(t, SourceLive, result.Source)
	assert.Equal(t, "PII_MASK", result.Rows[0].PolicyName)
	assert.Equal(t, 98.5, result.Rows[0].ComplianceScore)
}

func TestFetchPolicyEnforcementDegradesToEmpty(t *testing.T) {
	store, mock := newGovernanceStore(t)

	mock.ExpectQuery("FROM INSURANCE_WORKSHOP_DB.GOVERNANCE.POLICY_ENFORCEMENT_LOG").
		WillReturnError(assert.AnError)

	result := store.fetchPolicyEnforcement(context.Background())

	assert.Equal(t, SourceEmpty, result.Source)
	assert.Empty(t, result.Rows)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "policy enforcement")
}

func TestFetchAccessMonitoringUsesLongerTTL(t *testing.T) {
	store, mock := newGovernanceStore(t)

	mock.ExpectQuery("FROM SNOWFLAKE.ACCOUNT_USAGE.QUERY_HISTORY").
		WithArgs("INSURANCE_WORKSHOP_DB").
		WillReturnRows(sqlmock.NewRows([]string{
			"ACCESS_HOUR", "USER_NAME", "ROLE_NAME", "WAREHOUSE_NAME",
			"DATABASE_NAME", "SCHEMA_NAME", "QUERY_TYPE", "QUERY_COUNT", "TOTAL_TIME_MS",
		}).AddRow(time.Now(), "ANALYST", "WORKSHOP_ROLE", "WH", "INSURANCE_WORKSHOP_DB", "ANALYTICS", "SELECT", 42, 9000))

	first := store.FetchAccessMonitoring(context.Background())
	second := store.FetchAccessMonitoring(context.Background())

	require.Len(t, first.Rows, 1)
	assert.Equal(t, "ANALYST", first.Rows[0].UserName)
	assert.Equal(t, first.FetchedAt, second.FetchedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
