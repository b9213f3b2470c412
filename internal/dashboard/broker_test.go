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

func newBrokerStore(t *testing.T) (*BrokerStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := cache.New(time.Minute)
	t.Cleanup(c.Stop)

	svc := snowflake.NewServiceWithDB(db)
	return NewBrokerStore(svc, c, models.DefaultWarehouse(), time.Minute, 2*time.Minute), mock
}

func TestFetchIntelligenceParsesAnalysisBlob(t *testing.T) {
	store, mock := newBrokerStore(t)

	mock.ExpectQuery("FROM INSURANCE_WORKSHOP_DB.ANALYTICS.RISK_INTELLIGENCE_DASHBOARD").
		WillReturnRows(sqlmock.NewRows([]string{
			"BROKER_ID", "BROKER_PERFORMANCE_ANALYSIS", "CUSTOMER_COUNT",
			"AVG_CUSTOMER_RISK_SCORE", "HIGH_RISK_CUSTOMERS", "PREMIUM_CUSTOMERS",
			"AVG_PREMIUM", "TOTAL_CLAIMS",
		}).
			AddRow("BRK001", `{"total_score": 220, "performance_tier": "ELITE"}`, 34, 41.2, 5, 12, 1820.5, 90000.0).
			AddRow("BRK002", nil, 10, 55.0, 3, 1, 1500.0, 40000.0))

	result := store.fetchIntelligence(context.Background())

	require.Len(t, result.Rows, 2)
	assert.Equal(t, 220.0, result.Rows[0].Analysis.TotalScore)
	assert.Equal(t, "ELITE", result.Rows[0].Analysis.PerformanceTier)
	// NULL blob falls back to the UNKNOWN tier instead of failing the row
	assert.Equal(t, "UNKNOWN", result.Rows[1].Analysis.PerformanceTier)
}

func TestFetchDetailBindsBrokerID(t *testing.T) {
	store, mock := newBrokerStore(t)

	mock.ExpectQuery("FROM INSURANCE_WORKSHOP_DB.ANALYTICS.RISK_INTELLIGENCE_DASHBOARD").
		WithArgs("BRK007").
		WillReturnRows(sqlmock.NewRows([]string{
			"CUSTOMER_SEGMENT", "CUSTOMER_COUNT", "AVG_RISK_SCORE",
			"AVG_PREMIUM", "TOTAL_CLAIMS", "HIGH_RISK_COUNT",
		}).AddRow("PREMIUM_YOUNG", 8, 38.5, 2100.0, 12000.0, 1))
	mock.ExpectQuery("FROM INSURANCE_WORKSHOP_DB.ANALYTICS.RISK_INTELLIGENCE_DASHBOARD").
		WithArgs("BRK007").
		WillReturnRows(sqlmock.NewRows([]string{
			"FINAL_RISK_LEVEL", "CUSTOMER_COUNT", "AVG_SCORE", "RISK_TRAJECTORY_PREDICTION",
		}).AddRow("HIGH", 3, 71.0, `{"trajectory": "STABLE", "confidence": 0.6, "predicted_risk_level": "HIGH"}`))

	detail := store.FetchDetail(context.Background(), "BRK007")

	assert.Equal(t, "BRK007", detail.BrokerID)
	require.Len(t, detail.Portfolio.Rows, 1)
	assert.Equal(t, "PREMIUM_YOUNG", detail.Portfolio.Rows[0].CustomerSegment)
	require.Len(t, detail.RiskTrends.Rows, 1)
	assert.Equal(t, "STABLE", detail.RiskTrends.Rows[0].Trajectory.Trajectory)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchDetailDegradesPerSection(t *testing.T) {
	store, mock := newBrokerStore(t)

	mock.ExpectQuery("FROM INSURANCE_WORKSHOP_DB.ANALYTICS.RISK_INTELLIGENCE_DASHBOARD").
		WithArgs("BRK404").
		WillReturnError(assert.AnError)
	mock.ExpectQuery("FROM INSURANCE_WORKSHOP_DB.ANALYTICS.RISK_INTELLIGENCE_DASHBOARD").
		WithArgs("BRK404").
		WillReturnError(assert.AnError)

	detail := store.FetchDetail(context.Background(), "BRK404")

	assert.Equal(t, SourceEmpty, detail.Portfolio.Source)
	assert.Contains(t, detail.Portfolio.Warnings[0], "BRK404")
	assert.Equal(t, SourceEmpty, detail.RiskTrends.Source)
}
