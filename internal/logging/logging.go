// Package logging provides structured logging setup using log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// DebugEnv enables debug logging when set to "1".
const DebugEnv = "PPTPD_MONITOR_DEBUG"

// Level represents the logging verbosity level.
type Level int

const (
	// LevelInfo is the default logging level for normal operation.
	LevelInfo Level = iota
	// LevelDebug enables verbose debug output, including skipped log lines
	// and failed interface probes.
	LevelDebug
)

// Setup initializes the global slog logger writing text records to w.
// Diagnostics go to stderr so they never mix with the table on stdout.
func Setup(level Level, w io.Writer) *slog.Logger {
	slogLevel := slog.LevelInfo
	if level == LevelDebug {
		slogLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)
	return logger
}

// LevelFromEnv returns LevelDebug if forced or if PPTPD_MONITOR_DEBUG=1.
func LevelFromEnv(force bool) Level {
	if force || os.Getenv(DebugEnv) == "1" {
		return LevelDebug
	}
	return LevelInfo
}

// SetupFromEnv initializes the logger on stderr based on the environment.
func SetupFromEnv(forceDebug bool) *slog.Logger {
	return Setup(LevelFromEnv(forceDebug), os.Stderr)
}
