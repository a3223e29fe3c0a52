package port

// Logger is the structured logger services depend on. Arguments are
// slog-style alternating keys and values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// With returns a child logger that adds args to every record.
	With(args ...any) Logger
}
