// Package logging implements the domain Logger on zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ochairo/binscope/internal/domain/interfaces"
)

// Config contains logger configuration.
type Config struct {
	// Level sets the logging level (debug, info, warn, error).
	Level string
	// Pretty enables human-readable console output.
	Pretty bool
	// Output sets the output writer (defaults to os.Stderr so reports on
	// stdout stay machine-readable).
	Output io.Writer
}

// Logger adapts a zerolog.Logger to interfaces.Logger
type Logger struct {
	zl zerolog.Logger
}

var _ interfaces.Logger = (*Logger)(nil)

// New creates a logger with the given configuration.
func New(cfg Config) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.WarnLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
		}
	}

	return &Logger{
		zl: zerolog.New(output).
			Level(level).
			With().
			Timestamp().
			Logger(),
	}
}

// NewWithComponent creates a logger with a component field.
func NewWithComponent(cfg Config, component string) *Logger {
	l := New(cfg)
	l.zl = l.zl.With().Str("component", component).Logger()
	return l
}

// Zerolog returns the underlying logger
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

// Debug logs at debug level
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	withFields(l.zl.Debug(), fields).Msg(msg)
}

// Info logs at info level
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	withFields(l.zl.Info(), fields).Msg(msg)
}

// Warn logs at warn level
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	withFields(l.zl.Warn(), fields).Msg(msg)
}

// Error logs at error level
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	withFields(l.zl.Error(), fields).Msg(msg)
}

// withFields is safe on disabled events, which zerolog returns as nil
func withFields(e *zerolog.Event, fields []interfaces.Field) *zerolog.Event {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			e = e.AnErr(f.Key, v)
		default:
			e = e.Interface(f.Key, v)
		}
	}
	return e
}
