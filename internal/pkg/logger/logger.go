package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *slog.Logger

// Config selects the log level and encoder.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// ParseLevel maps a level name onto slog and zap levels. Unknown names fall back to info.
func ParseLevel(levelStr string) (slog.Level, zapcore.Level) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug, zapcore.DebugLevel
	case "WARN", "WARNING":
		return slog.LevelWarn, zapcore.WarnLevel
	case "ERROR":
		return slog.LevelError, zapcore.ErrorLevel
	default:
		return slog.LevelInfo, zapcore.InfoLevel
	}
}

// New builds the process zap logger, routes slog through it and installs the
// result as the slog default. The returned zap logger must be synced on exit.
func New(cfg Config) (*zap.Logger, error) {
	slogLevel, zapLevel := ParseLevel(cfg.Level)

	var zcfg zap.Config
	if strings.EqualFold(cfg.Format, "console") {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)

	zapLogger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	handler := slogzap.Option{Level: slogLevel, Logger: zapLogger}.NewZapHandler()
	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	return zapLogger, nil
}

func ensureInitialized() {
	if globalLogger == nil {
		globalLogger = slog.Default()
	}
}

// Debug logs a message at DebugLevel.
func Debug(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Debug(msg, args...)
}

// Info logs a message at InfoLevel.
func Info(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Info(msg, args...)
}

// Warn logs a message at WarnLevel.
func Warn(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Warn(msg, args...)
}

// Error logs a message at ErrorLevel.
func Error(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Error(msg, args...)
}

// Fatal logs at ErrorLevel and exits.
func Fatal(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Error(msg, args...)
	os.Exit(1)
}

func enabled(level slog.Level) bool {
	ensureInitialized()
	return globalLogger.Enabled(context.Background(), level)
}
