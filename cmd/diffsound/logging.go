package main

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

const logFileName = "diffsound.log"

// setupLogging routes slog and the std logger to a file under dir when debug, otherwise discards
// Returns the open log file, nil when discarding or when the file cannot be created
func setupLogging(debug bool, dir string) *os.File {
	if !debug {
		route(io.Discard, slog.LevelInfo)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		route(io.Discard, slog.LevelInfo)
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		route(io.Discard, slog.LevelInfo)
		return nil
	}

	route(f, slog.LevelDebug)
	slog.Info("logging started", "pid", os.Getpid())
	return f
}

// route must set slog first: slog.SetDefault redirects the std logger, which is then pointed at w directly
func route(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	log.SetOutput(w)
}
