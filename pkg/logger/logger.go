package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ba6-ai-server/internal/domain"
)

// AppLogger implements the domain.Logger interface on top of zap
type AppLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a new logger instance. Development environments get the
// console encoder, everything else logs JSON.
func NewLogger(levelStr string, env ...string) domain.Logger {
	cfg := zap.NewProductionConfig()
	if len(env) > 0 && strings.EqualFold(env[0], "development") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLogLevel(levelStr))
	cfg.DisableStacktrace = true

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		base = zap.NewNop()
	}
	return &AppLogger{sugar: base.Sugar()}
}

// NewFromZap wraps an existing zap logger.
func NewFromZap(base *zap.Logger) domain.Logger {
	return &AppLogger{sugar: base.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// NewNop returns a logger that discards everything.
func NewNop() domain.Logger {
	return &AppLogger{sugar: zap.NewNop().Sugar()}
}

// Info logs an info message
func (l *AppLogger) Info(msg string, fields ...interface{}) {
	l.sugar.Infow(msg, fields...)
}

// Error logs an error message
func (l *AppLogger) Error(msg string, err error, fields ...interface{}) {
	l.sugar.Errorw(msg, append([]interface{}{"error", err}, fields...)...)
}

// Debug logs a debug message
func (l *AppLogger) Debug(msg string, fields ...interface{}) {
	l.sugar.Debugw(msg, fields...)
}

// Warn logs a warning message
func (l *AppLogger) Warn(msg string, fields ...interface{}) {
	l.sugar.Warnw(msg, fields...)
}

// Sync flushes buffered entries.
func (l *AppLogger) Sync() error {
	return l.sugar.Sync()
}

// parseLogLevel converts string log level to a zap level
func parseLogLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
