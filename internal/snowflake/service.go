package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/snowflakedb/gosnowflake"

	"snowdash/pkg/errors"
)

// Service provides read-only access to the analytic warehouse. It is shared
// across all dashboard fetchers in a process; the store is never mutated.
type Service struct {
	db             *sql.DB
	config         Config
	connected      bool
	circuitBreaker *errors.CircuitBreaker
}

// Config holds Snowflake connection configuration
type Config struct {
	Account   string
	Username  string
	Password  string
	Database  string
	Schema    string
	Warehouse string
	Role      string
	Timeout   time.Duration
}

// SessionInfo describes the authenticated session context
type SessionInfo struct {
	User     string `json:"user"`
	Role     string `json:"role"`
	Database string `json:"database"`
	Schema   string `json:"schema"`
}

// NewService creates a new Snowflake service
func NewService(config Config) *Service {
	return &Service{
		config:         config,
		circuitBreaker: errors.NewCircuitBreaker("snowflake", 5, 30*time.Second),
	}
}

// NewServiceWithDB wraps an existing database handle. Used by tests and by
// hosting runtimes that hand us an already-authenticated session.
func NewServiceWithDB(db *sql.DB) *Service {
	return &Service{
		db:             db,
		connected:      true,
		circuitBreaker: errors.NewCircuitBreaker("snowflake", 5, 30*time.Second),
	}
}

// Connect establishes a connection to Snowflake
func (s *Service) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}

	return s.circuitBreaker.Execute(ctx, func() error {
		return errors.RetryWithBackoff(ctx, func(ctx context.Context) error {
			dsn := fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s&role=%s",
				s.config.Username,
				s.config.Password,
				s.config.Account,
				s.config.Database,
				s.config.Schema,
				s.config.Warehouse,
				s.config.Role,
			)

			db, err := sql.Open("snowflake", dsn)
			if err != nil {
				return errors.ConnectionError("Failed to open Snowflake connection", err).
					WithContext("account", s.config.Account).
					WithContext("warehouse", s.config.Warehouse)
			}

			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(10 * time.Minute)

			pingCtx, cancel := s.queryContext(ctx)
			defer cancel()

			if err := db.PingContext(pingCtx); err != nil {
				db.Close()

				if strings.Contains(err.Error(), "authentication") {
					return errors.New(errors.ErrCodeAuthenticationFailed, "Authentication failed").
						WithContext("user", s.config.Username).
						WithSuggestions(
							"Verify your username and password",
							"Check if your account is locked",
							"Ensure MFA is properly configured if required",
						)
				}

				return errors.ConnectionError("Failed to connect to Snowflake", err).
					WithContext("account", s.config.Account).
					AsRecoverable()
			}

			s.db = db
			s.connected = true
			return nil
		})
	})
}

// Close closes the database connection
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	s.connected = false
	return nil
}

// Connected reports whether the service holds a live session
func (s *Service) Connected() bool {
	return s.connected
}

// Ping verifies the session is usable
func (s *Service) Ping(ctx context.Context) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}

	pingCtx, cancel := s.queryContext(ctx)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// Rows wraps a result set so closing it also releases the per-query
// timeout. The timeout must outlive Query itself: canceling before the
// caller has iterated would tear the rows down mid-read.
type Rows struct {
	*sql.Rows
	cancel context.CancelFunc
}

// Close closes the rows and releases the query timeout
func (r *Rows) Close() error {
	err := r.Rows.Close()
	r.cancel()
	return err
}

// Query executes a read-only query and returns the raw rows. Callers must
// Close the result to release the query timeout.
func (s *Service) Query(ctx context.Context, query string, args ...interface{}) (*Rows, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse").
			WithSuggestions("Call Connect() before running queries")
	}

	queryCtx, cancel := s.queryContext(ctx)

	rows, err := s.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		cancel()
		return nil, errors.QueryError("Query execution failed", query, err)
	}
	return &Rows{Rows: rows, cancel: cancel}, nil
}

// SessionInfo returns the current session context, mirroring the
// connection probe the dashboard header shows.
func (s *Service) SessionInfo(ctx context.Context) (SessionInfo, error) {
	var info SessionInfo
	if !s.connected {
		return info, errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}

	queryCtx, cancel := s.queryContext(ctx)
	defer cancel()

	row := s.db.QueryRowContext(queryCtx,
		"SELECT CURRENT_USER(), CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_SCHEMA()")

	var user, role, database, schema sql.NullString
	if err := row.Scan(&user, &role, &database, &schema); err != nil {
		return info, errors.QueryError("Connection probe failed", "SELECT CURRENT_USER()...", err)
	}

	info.User = user.String
	info.Role = role.String
	info.Database = database.String
	info.Schema = schema.String
	return info, nil
}

// ViewExists probes INFORMATION_SCHEMA for a view in the given schema
func (s *Service) ViewExists(ctx context.Context, schema, view string) (bool, error) {
	if !s.connected {
		return false, errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}

	queryCtx, cancel := s.queryContext(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM INFORMATION_SCHEMA.VIEWS WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`
	row := s.db.QueryRowContext(queryCtx, query, strings.ToUpper(schema), strings.ToUpper(view))

	var count int
	if err := row.Scan(&count); err != nil {
		return false, errors.QueryError("View existence probe failed", query, err).
			WithContext("view", view)
	}
	return count > 0, nil
}

// RequiredViews lists the quality views the monitoring page depends on,
// returning the subset that is missing.
func (s *Service) RequiredViews(ctx context.Context, schema string, views []string) ([]string, error) {
	var missing []string
	for _, view := range views {
		exists, err := s.ViewExists(ctx, schema, view)
		if err != nil {
			return nil, err
		}
		if !exists {
			missing = append(missing, view)
		}
	}
	return missing, nil
}

// DB returns the underlying database handle
func (s *Service) DB() *sql.DB {
	return s.db
}

func (s *Service) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

// ValidateConfig validates the Snowflake configuration
func ValidateConfig(config Config) error {
	if config.Account == "" {
		return errors.ValidationError("account is required", "account")
	}
	if config.Username == "" {
		return errors.ValidationError("username is required", "username")
	}
	if config.Password == "" {
		return errors.ValidationError("password is required", "password")
	}
	if config.Warehouse == "" {
		return errors.ValidationError("warehouse is required", "warehouse")
	}
	if config.Role == "" {
		return errors.ValidationError("role is required", "role")
	}
	return nil
}
