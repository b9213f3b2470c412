package snowflake

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "snowdash/pkg/errors"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewServiceWithDB(db), mock
}

func TestValidateConfig(t *testing.T) {
	valid := Config{
		Account:   "xy12345.us-east-1",
		Username:  "workshop_user",
		Password:  "secret",
		Warehouse: "COMPUTE_WH",
		Role:      "WORKSHOP_ROLE",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing account", func(c *Config) { c.Account = "" }, "account is required"},
		{"missing username", func(c *Config) { c.Username = "" }, "username is required"},
		{"missing password", func(c *Config) { c.Password = "" }, "password is required"},
		{"missing warehouse", func(c *Config) { c.Warehouse = "" }, "warehouse is required"},
		{"missing role", func(c *Config) { c.Role = "" }, "role is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.GetErrorCode(err))
			}
		})
	}
}

func TestSessionInfo(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT CURRENT_USER").
		WillReturnRows(sqlmock.NewRows([]string{"user", "role", "database", "schema"}).
			AddRow("WORKSHOP_USER", "WORKSHOP_ROLE", "INSURANCE_WORKSHOP_DB", "ANALYTICS"))

	info, err := svc.SessionInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "WORKSHOP_USER", info.User)
	assert.Equal(t, "WORKSHOP_ROLE", info.Role)
	assert.Equal(t, "INSURANCE_WORKSHOP_DB", info.Database)
	assert.Equal(t, "ANALYTICS", info.Schema)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionInfoNotConnected(t *testing.T) {
	svc := NewService(Config{})
	_, err := svc.SessionInfo(context.Background())
	assert.Error(t, err)
}

func TestViewExistsUppercasesArgs(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM INFORMATION_SCHEMA.VIEWS").
		WithArgs("ANALYTICS", "ENTITY_QUALITY_SCORES").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := svc.ViewExists(context.Background(), "analytics", "entity_quality_scores")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestViewExistsMissing(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM INFORMATION_SCHEMA.VIEWS").
		WithArgs("ANALYTICS", "NO_SUCH_VIEW").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err := svc.ViewExists(context.Background(), "ANALYTICS", "NO_SUCH_VIEW")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRequiredViewsReportsMissing(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("INFORMATION_SCHEMA.VIEWS").
		WithArgs("ANALYTICS", "ENTITY_QUALITY_SCORES").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("INFORMATION_SCHEMA.VIEWS").
		WithArgs("ANALYTICS", "QUALITY_SUMMARY").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	missing, err := svc.RequiredViews(context.Background(), "ANALYTICS",
		[]string{"ENTITY_QUALITY_SCORES", "QUALITY_SUMMARY"})
	require.NoError(t, err)
	assert.Equal(t, []string{"QUALITY_SUMMARY"}, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRowsSurviveAfterReturn(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT entity_name").
		WillReturnRows(sqlmock.NewRows([]string{"entity_name"}).
			AddRow("CUSTOMERS_RAW").
			AddRow("CLAIMS_RAW"))

	rows, err := svc.Query(context.Background(), "SELECT entity_name FROM scores")
	require.NoError(t, err)
	defer rows.Close()

	// the query timeout must not fire between Query returning and the
	// caller iterating
	time.Sleep(100 * time.Millisecond)

	var entities []string
	for rows.Next() {
		var entity string
		require.NoError(t, rows.Scan(&entity))
		entities = append(entities, entity)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"CUSTOMERS_RAW", "CLAIMS_RAW"}, entities)
}

func TestQueryNotConnected(t *testing.T) {
	svc := NewService(Config{Timeout: time.Second})
	_, err := svc.Query(context.Background(), "SELECT 1")
	assert.Error(t, err)
}

func TestCloseIdempotent(t *testing.T) {
	svc, mock := newMockService(t)
	mock.ExpectClose()
	require.NoError(t, svc.Close())
	assert.False(t, svc.Connected())
	require.NoError(t, svc.Close())
}
