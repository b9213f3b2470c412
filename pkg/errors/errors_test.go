package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndWrap(t *testing.T) {
	err := New(ErrCodeConnectionFailed, "cannot reach warehouse")
	assert.Equal(t, ErrCodeConnectionFailed, err.Code)
	assert.Contains(t, err.Error(), "SDSH1001")
	assert.Contains(t, err.Error(), "cannot reach warehouse")

	cause := fmt.Errorf("dial tcp: timeout")
	wrapped := Wrap(cause, ErrCodeSQLExecution, "query failed")
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.Contains(t, wrapped.Error(), "dial tcp")
}

func TestWithContextAndSuggestions(t *testing.T) {
	err := New(ErrCodeViewMissing, "view not found").
		WithContext("view", "ENTITY_QUALITY_SCORES").
		WithSuggestions("Run the setup script")

	assert.Equal(t, "ENTITY_QUALITY_SCORES", err.Context["view"])
	assert.Equal(t, []string{"Run the setup script"}, GetSuggestions(err))
	assert.Empty(t, GetSuggestions(fmt.Errorf("plain")))
}

func TestViewMissingError(t *testing.T) {
	err := ViewMissingError("ENTITY_QUALITY_SCORES", "01_DATA_QUALITY.sql")
	assert.Equal(t, ErrCodeViewMissing, err.Code)
	assert.Contains(t, err.Error(), "ENTITY_QUALITY_SCORES view does not exist")
	assert.Contains(t, err.Error(), "Run 01_DATA_QUALITY.sql first")
}

func TestConfigError(t *testing.T) {
	err := ConfigError("No Snowflake account configured", "snowflake.account")
	assert.Equal(t, ErrCodeConfigInvalid, err.Code)
	assert.Equal(t, "snowflake.account", err.Context["field"])
	assert.Contains(t, err.Error(), "snowdash setup")
}

func TestValidationError(t *testing.T) {
	err := ValidationError("account is required", "account")
	assert.Equal(t, ErrCodeValidationFailed, err.Code)
	assert.Equal(t, "account", err.Context["field"])
}

func TestIsRecoverable(t *testing.T) {
	assert.False(t, IsRecoverable(New(ErrCodeConfigInvalid, "bad config")))
	assert.True(t, IsRecoverable(New(ErrCodeConnectionFailed, "flaky").AsRecoverable()))
	assert.False(t, IsRecoverable(fmt.Errorf("plain")))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeSQLTimeout, GetErrorCode(New(ErrCodeSQLTimeout, "slow")))
	assert.Equal(t, ErrCodeUnknown, GetErrorCode(fmt.Errorf("plain")))
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	config := &RetryConfig{
		MaxRetries:     3,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2,
		RetryableError: IsRecoverable,
	}

	err := Retry(context.Background(), config, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return New(ErrCodeConnectionFailed, "transient").AsRecoverable()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRecoverable(t *testing.T) {
	attempts := 0
	config := &RetryConfig{
		MaxRetries:     5,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2,
		RetryableError: IsRecoverable,
	}

	err := Retry(context.Background(), config, func(ctx context.Context) error {
		attempts++
		return New(ErrCodeConfigInvalid, "permanent")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, time.Minute)
	fail := func() error { return fmt.Errorf("boom") }

	assert.Error(t, cb.Execute(context.Background(), fail))
	assert.Error(t, cb.Execute(context.Background(), fail))
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(context.Background(), func() error { return nil })
	assert.Error(t, err)
}
