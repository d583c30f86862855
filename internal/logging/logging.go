// Package logging sets up the per-run log file. Every run writes a
// timestamped log capturing counts and failures; the console stays quiet
// unless --verbose echoes the same stream to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewRunLogger returns a debug-level logger writing to a fresh
// timestamped file under dir, and the file's path. With verbose set the
// stream is also echoed to stderr.
func NewRunLogger(dir string, verbose bool) (*slog.Logger, string) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, fmt.Sprintf("histmig_%s.log", time.Now().Format("20060102_150405")))

	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // MB; a single run should never get near this
		MaxBackups: 1,
	}

	var w io.Writer = sink
	if verbose {
		w = io.MultiWriter(sink, os.Stderr)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), path
}

// Discard returns a logger that drops everything, for tests and callers
// that do not want a log file.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
