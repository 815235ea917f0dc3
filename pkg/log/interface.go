// Package log provides the structured logging interface used across tumoreval.
//
// The interface is slog-shaped (message plus alternating key/value fields) and
// backed by zerolog. Components take a Logger from GetLogger, attach their
// context once with With, and log with the keys defined in attributes.go:
//
//	logger := log.GetLogger().With(
//	    log.ComponentKey, "evaluation",
//	    log.VariantKey, "random_forest",
//	)
//	logger.Info("variant trained",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 112,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. An error value found where a key is
// expected is logged as the record's error, together with its stack trace
// when it carries one.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general progress of the pipeline.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the run, such as a
	// non-converged MLP or an undefined metric.
	Warn(msg string, fields ...any)

	// Error logs a failure. The first field may be the error itself:
	//
	//	logger.Error("variant failed", err, log.VariantKey, "mlp")
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
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

// LoggerProvider creates and configures loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger with a component identifier attached.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for loggers created by this provider.
	SetLevel(level Level)
}
