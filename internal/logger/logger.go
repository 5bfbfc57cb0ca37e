// Package logger provides the shared zap logger for the backend.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the global logger instance, initialized by InitLogger.
var Log *zap.Logger = zap.NewNop()

// InitLogger configures the global logger.
// level is one of debug/info/warn/error; format is "json" or "console".
func InitLogger(level string, format string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	if format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	log, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	Log = log
	return nil
}

// Sync flushes any buffered log entries. Call via defer in main.
func Sync() {
	_ = Log.Sync()
}
