// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     logging
// Description: Logger factory with a process-wide output and level
// Author:      Mike Stoffels
// Created:     2026-09-21
// License:     MIT
// ============================================================================

package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Config holds the process-wide logging configuration
type Config struct {
	// Level is one of debug, info, warn, error
	Level string

	// Format is "text" (default), "json" or "logfmt"
	Format string

	// Output receives all log lines (default: os.Stderr)
	Output io.Writer
}

var (
	mu       sync.Mutex
	output   = &switchWriter{w: os.Stderr}
	level    = LevelInfo
	format   = charmlog.TextFormatter
	registry []*Logger
)

// switchWriter lets already created loggers follow a later Configure call
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

// Configure applies cfg to all existing and future loggers
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	level = ParseLevel(cfg.Level)
	switch cfg.Format {
	case "json":
		format = charmlog.JSONFormatter
	case "logfmt":
		format = charmlog.LogfmtFormatter
	default:
		format = charmlog.TextFormatter
	}
	if cfg.Output != nil {
		output.set(cfg.Output)
	} else {
		output.set(os.Stderr)
	}

	for _, l := range registry {
		l.base.SetLevel(level.charm())
		l.base.SetFormatter(format)
	}
}

// OpenFile redirects all loggers to the file at path and returns a close func.
// Used while the terminal UI owns stdout and stderr.
func OpenFile(path, lvl string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	Configure(Config{Level: lvl, Output: f})
	return func() error {
		Configure(Config{Level: lvl})
		return f.Close()
	}, nil
}

// CurrentLevel returns the configured level
func CurrentLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return level
}

// Logger is a named logger taking key/value pairs
type Logger struct {
	base *charmlog.Logger
	name string
}

// New creates a named logger using the process-wide configuration
func New(name string) *Logger {
	mu.Lock()
	defer mu.Unlock()

	base := charmlog.NewWithOptions(output, charmlog.Options{
		Level:           level.charm(),
		Prefix:          name,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Formatter:       format,
	})
	l := &Logger{base: base, name: name}
	registry = append(registry, l)
	return l
}

// Name returns the logger name
func (l *Logger) Name() string {
	return l.name
}

// WithLevel returns a copy of the logger with a fixed level
func (l *Logger) WithLevel(lvl Level) *Logger {
	base := l.base.With()
	base.SetLevel(lvl.charm())
	return &Logger{base: base, name: l.name}
}

// With returns a child logger that always carries the given key/value pairs
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{base: l.base.With(keysAndValues...), name: l.name}
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.base.Debug(msg, normalize(keysAndValues)...)
}

// Info logs an info message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.base.Info(msg, normalize(keysAndValues)...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.base.Warn(msg, normalize(keysAndValues)...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.base.Error(msg, normalize(keysAndValues)...)
}

// normalize drops pairs with non-string keys and a dangling trailing value
func normalize(keysAndValues []interface{}) []interface{} {
	if len(keysAndValues) == 0 {
		return nil
	}

	out := make([]interface{}, 0, len(keysAndValues))
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		out = append(out, key, keysAndValues[i+1])
	}
	return out
}
