// Package logging implements ports.Logger over log/slog.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lunatic-run/plugin/internal/ports"
)

// SlogLogger implements ports.Logger using slog.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger builds a level-filtered logger, JSON-encoded when json is
// true and human-readable text otherwise.
func NewSlogLogger(level string, json bool) *SlogLogger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return &SlogLogger{logger: slog.New(handler)}
}

func (l *SlogLogger) Debug(msg string, args ...interface{}) { l.logger.Debug(msg, args...) }
func (l *SlogLogger) Info(msg string, args ...interface{})  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...interface{})  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...interface{}) { l.logger.Error(msg, args...) }

func (l *SlogLogger) With(args ...interface{}) ports.Logger {
	return &SlogLogger{logger: l.logger.With(args...)}
}

var _ ports.Logger = (*SlogLogger)(nil)

// NopLogger discards everything; used by tests and callers with no logging
// sink configured.
type NopLogger struct{}

func (NopLogger) Debug(msg string, args ...interface{}) {}
func (NopLogger) Info(msg string, args ...interface{})  {}
func (NopLogger) Warn(msg string, args ...interface{})  {}
func (NopLogger) Error(msg string, args ...interface{}) {}
func (l NopLogger) With(args ...interface{}) ports.Logger { return l }

var _ ports.Logger = NopLogger{}
