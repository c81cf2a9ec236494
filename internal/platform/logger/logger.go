package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns the service logger: JSON lines in production so log shippers can
// index attributes, human readable text elsewhere.
func New(environment string) *slog.Logger {
	return newWithWriter(os.Stdout, environment)
}

func newWithWriter(w io.Writer, environment string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if environment == "production" {
		return slog.New(slog.NewJSONHandler(w, opts)).With("service", "dinein")
	}
	opts.Level = slog.LevelDebug
	return slog.New(slog.NewTextHandler(w, opts)).With("service", "dinein")
}

// Discard is a logger for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
