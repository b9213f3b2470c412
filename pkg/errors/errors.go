package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "SDSH1001"
	ErrCodeConnectionTimeout    ErrorCode = "SDSH1002"
	ErrCodeAuthenticationFailed ErrorCode = "SDSH1003"
	ErrCodeNetworkUnavailable   ErrorCode = "SDSH1004"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound   ErrorCode = "SDSH2001"
	ErrCodeConfigInvalid    ErrorCode = "SDSH2002"
	ErrCodeConfigMissing    ErrorCode = "SDSH2003"
	ErrCodeCredentialStore  ErrorCode = "SDSH2004"
	ErrCodeEncryptionFailed ErrorCode = "SDSH2005"

	// Fetch errors (3xxx)
	ErrCodeViewMissing ErrorCode = "SDSH3001"

	// SQL execution errors (4xxx)
	ErrCodeSQLSyntax         ErrorCode = "SDSH4001"
	ErrCodeSQLPermission     ErrorCode = "SDSH4002"
	ErrCodeSQLTimeout        ErrorCode = "SDSH4003"
	ErrCodeSQLObjectNotFound ErrorCode = "SDSH4004"
	ErrCodeSQLExecution      ErrorCode = "SDSH4005"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "SDSH6001"
	ErrCodeInvalidInput     ErrorCode = "SDSH6002"
	ErrCodeRequiredField    ErrorCode = "SDSH6003"

	// System errors (9xxx)
	ErrCodeInternal           ErrorCode = "SDSH9001"
	ErrCodeTimeout            ErrorCode = "SDSH9002"
	ErrCodeResourceExhausted  ErrorCode = "SDSH9003"
	ErrCodeServiceUnavailable ErrorCode = "SDSH9004"
	ErrCodeUnknown            ErrorCode = "SDSH9999"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // System failure, requires immediate attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but system continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit its context
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityError).
		WithSuggestions(
			"Check your network connection",
			"Verify the Snowflake endpoint is accessible",
			"Check firewall settings",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'snowdash setup' to reconfigure",
		)
}

// ViewMissingError reports an expected warehouse view that does not exist,
// naming the setup script the operator has to run.
func ViewMissingError(view, setupScript string) *AppError {
	return New(ErrCodeViewMissing, fmt.Sprintf("The %s view does not exist", view)).
		WithContext("view", view).
		WithContext("setup_script", setupScript).
		WithSuggestions(
			fmt.Sprintf("Run %s first", setupScript),
			"Verify your role has access to the view",
		)
}

// QueryError creates an SQL execution error
func QueryError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))

	if cause != nil {
		causeStr := cause.Error()
		switch {
		case strings.Contains(causeStr, "does not exist") || strings.Contains(causeStr, "not found"):
			err.Code = ErrCodeSQLObjectNotFound
			err = err.WithSuggestions(
				"Verify the object exists in the target database/schema",
				"Check for typos in object names",
			)
		case strings.Contains(causeStr, "permission") || strings.Contains(causeStr, "access denied"):
			err.Code = ErrCodeSQLPermission
			err = err.WithSuggestions(
				"Check user permissions in Snowflake",
				"Verify the role has required privileges",
			)
		case strings.Contains(causeStr, "timeout"):
			err.Code = ErrCodeSQLTimeout
			err = err.AsRecoverable()
		}
	}

	return err
}

// ValidationError creates a validation error
func ValidationError(message string, field string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field)
}

// Helper functions

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeUnknown
}

// GetSuggestions extracts suggestions from an error
func GetSuggestions(err error) []string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Suggestions
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
