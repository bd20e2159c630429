// Package logging provides logging interfaces and utilities for typedq.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the severity of a log message.
type Level int

const (
	// LevelDebug for detailed debugging information
	LevelDebug Level = iota
	// LevelInfo for informational messages
	LevelInfo
	// LevelWarn for warning messages
	LevelWarn
	// LevelError for error messages
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name such as "debug" or "WARN".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is the interface for logging in typedq.
// Users can implement this interface to integrate with their logging system.
type Logger interface {
	// Debug logs a debug message
	Debug(msg string, fields ...Field)

	// Info logs an informational message
	Info(msg string, fields ...Field)

	// Warn logs a warning message
	Warn(msg string, fields ...Field)

	// Error logs an error message
	Error(msg string, fields ...Field)
}

// Field represents a structured logging field.
type Field struct {
	Key   string
	Value interface{}
}

// F is a convenience function to create a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// NoopLogger is a logger that does nothing.
type NoopLogger struct{}

// Debug implements Logger.
func (NoopLogger) Debug(string, ...Field) {}

// Info implements Logger.
func (NoopLogger) Info(string, ...Field) {}

// Warn implements Logger.
func (NoopLogger) Warn(string, ...Field) {}

// Error implements Logger.
func (NoopLogger) Error(string, ...Field) {}

// ZapLogger adapts a *zap.Logger to Logger.
type ZapLogger struct {
	z *zap.Logger
}

// NewZapLogger wraps an existing zap logger. A nil logger yields a no-op zap logger.
func NewZapLogger(z *zap.Logger) *ZapLogger {
	if z == nil {
		z = zap.NewNop()
	}
	return &ZapLogger{z: z}
}

// NewProductionLogger builds a JSON zap logger writing to stderr at the given minimum level.
func NewProductionLogger(minLevel Level) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(minLevel.zapLevel())

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return NewZapLogger(z), nil
}

// NewConsoleLogger builds a human-readable zap logger for command-line use.
func NewConsoleLogger(minLevel Level) (*ZapLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(minLevel.zapLevel())
	cfg.DisableStacktrace = true

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return NewZapLogger(z), nil
}

// Debug implements Logger.
func (l *ZapLogger) Debug(msg string, fields ...Field) {
	l.z.Debug(msg, zapFields(fields)...)
}

// Info implements Logger.
func (l *ZapLogger) Info(msg string, fields ...Field) {
	l.z.Info(msg, zapFields(fields)...)
}

// Warn implements Logger.
func (l *ZapLogger) Warn(msg string, fields ...Field) {
	l.z.Warn(msg, zapFields(fields)...)
}

// Error implements Logger.
func (l *ZapLogger) Error(msg string, fields ...Field) {
	l.z.Error(msg, zapFields(fields)...)
}

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.z.Sync()
}

func zapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		if err, ok := f.Value.(error); ok {
			out[i] = zap.NamedError(f.Key, err)
			continue
		}
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}
