package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds a slog logger writing to stdout at the given level. An unknown
// level falls back to info.
func New(level string, json bool) *slog.Logger {
	return NewWriter(os.Stdout, level, json)
}

func NewWriter(w io.Writer, level string, json bool) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
