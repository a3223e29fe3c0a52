package logger

import (
	"context"
	"io"
	"log/slog"

	"starknet_portfolio/internal/app/port"
)

// slogAdapter implements port.Logger on top of an slog.Logger.
// A nil inner logger means "use the package-level logger".
type slogAdapter struct {
	inner *slog.Logger
}

// NewSlogAdapter returns a port.Logger backed by the global logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

// Named returns a port.Logger that tags every record with component=name.
func Named(name string) port.Logger {
	ensureInitialized()
	return &slogAdapter{inner: globalLogger.With("component", name)}
}

// NewNop returns a logger that discards everything. Intended for tests.
func NewNop() port.Logger {
	return &slogAdapter{inner: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

func (a *slogAdapter) log(level slog.Level, msg string, args ...any) {
	if a.inner == nil {
		if !enabled(level) {
			return
		}
		globalLogger.Log(context.Background(), level, msg, args...)
		return
	}
	a.inner.Log(context.Background(), level, msg, args...)
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.log(slog.LevelInfo, msg, args...) }
func (a *slogAdapter) Debug(msg string, args ...any) { a.log(slog.LevelDebug, msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.log(slog.LevelWarn, msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.log(slog.LevelError, msg, args...) }

func (a *slogAdapter) With(args ...any) port.Logger {
	inner := a.inner
	if inner == nil {
		ensureInitialized()
		inner = globalLogger
	}
	return &slogAdapter{inner: inner.With(args...)}
}
