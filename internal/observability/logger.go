package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[LogLevel]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version,omitempty"`
}

// Logger provides structured logging for the dashboard process
type Logger struct {
	mu      sync.Mutex
	level   LogLevel
	output  io.Writer
	fields  map[string]interface{}
	service string
	version string
}

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level   LogLevel
	Output  io.Writer
	Service string
	Version string
}

// NewLogger creates a new structured logger
func NewLogger(config LoggerConfig) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}
	if config.Service == "" {
		config.Service = "snowdash"
	}
	return &Logger{
		level:   config.Level,
		output:  config.Output,
		fields:  make(map[string]interface{}),
		service: config.Service,
		version: config.Version,
	}
}

var (
	defaultLogger *Logger
	defaultOnce   sync.Once
)

// Default returns the process-wide logger
func Default() *Logger {
	defaultOnce.Do(func() {
		level := InfoLevel
		if os.Getenv("SNOWDASH_DEBUG") != "" {
			level = DebugLevel
		}
		defaultLogger = NewLogger(LoggerConfig{Level: level})
	})
	return defaultLogger
}

// WithFields returns a logger that attaches the given fields to every entry
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		level:   l.level,
		output:  l.output,
		fields:  merged,
		service: l.service,
		version: l.version,
	}
}

// SetLevel changes the minimum logged level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     levelNames[level],
		Message:   message,
		Service:   l.service,
		Version:   l.version,
	}

	if len(l.fields) > 0 || len(fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(l.fields)+len(fields))
		for k, v := range l.fields {
			entry.Fields[k] = v
		}
		for k, v := range fields {
			entry.Fields[k] = v
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.output, `{"level":"ERROR","message":"failed to encode log entry: %v"}`+"\n", err)
		return
	}
	l.output.Write(data)
	l.output.Write([]byte("\n"))
}

// Debug logs a debug message
func (l *Logger) Debug(message string) { l.log(DebugLevel, message, nil) }

// Info logs an informational message
func (l *Logger) Info(message string) { l.log(InfoLevel, message, nil) }

// Warn logs a warning message
func (l *Logger) Warn(message string) { l.log(WarnLevel, message, nil) }

// Error logs an error message
func (l *Logger) Error(message string) { l.log(ErrorLevel, message, nil) }

// DebugWithFields logs a debug message with fields
func (l *Logger) DebugWithFields(message string, fields map[string]interface{}) {
	l.log(DebugLevel, message, fields)
}

// InfoWithFields logs an informational message with fields
func (l *Logger) InfoWithFields(message string, fields map[string]interface{}) {
	l.log(InfoLevel, message, fields)
}

// WarnWithFields logs a warning message with fields
func (l *Logger) WarnWithFields(message string, fields map[string]interface{}) {
	l.log(WarnLevel, message, fields)
}

// ErrorWithFields logs an error message with fields
func (l *Logger) ErrorWithFields(message string, fields map[string]interface{}) {
	l.log(ErrorLevel, message, fields)
}
