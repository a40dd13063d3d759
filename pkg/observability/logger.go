package observability

import (
	"log/slog"
	"os"
)

type Logger struct {
	*slog.Logger
}

// NewLogger returns a JSON structured logger tagged with the service name.
func NewLogger(serviceName string) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	logger := slog.New(handler).With("service", serviceName)
	return &Logger{logger}
}

// With returns a child logger carrying the extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}
