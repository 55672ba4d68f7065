// Package logger configures structured logging for EduGuard services.
// All components receive a *slog.Logger; this package only decides the
// handler, level, and common attributes per environment.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options control logger construction.
type Options struct {
	// Environment is "development", "staging" or "production".
	// Production and staging log JSON; development logs human-readable text.
	Environment string

	// Level is the minimum level ("debug", "info", "warn", "error").
	Level string

	// Service is added as a "service" attribute on every record.
	Service string

	// Output defaults to os.Stdout.
	Output io.Writer
}

// New builds a *slog.Logger from the given options.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	level := parseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.Environment == "development" || opts.Environment == "" {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	log := slog.New(handler)
	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}
	return log
}

// parseLevel maps a level name to slog.Level, defaulting to Info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
