// Package telemetry wraps zerolog for run-scoped structured logging.
// Every record carries the run's correlation id; zone-scoped loggers
// add account and role fields when structured mode is enabled.
// Credential and secret values are never logged.
package telemetry

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nisops/lzops/config"
	"github.com/nisops/lzops/types"
)

// Logger wraps zerolog with the fields this system threads through
// every call.
type Logger struct {
	zerolog.Logger
	structured bool
}

// New builds the root logger from logging configuration. The returned
// closer flushes and closes the file sink when one is configured.
func New(cfg config.LoggingConfig) (*Logger, func() error, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer
	closer := func() error { return nil }

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if cfg.File {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
			return nil, nil, err
		}
		fw, err := newRotatingWriter(cfg.Path, int64(cfg.Rotation.MaxSizeMB)*1024*1024, cfg.Rotation.Backups)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, fw)
		closer = fw.Close
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: logger, structured: cfg.Structured}, closer, nil
}

// NewComponent creates a plain stderr logger tagged with a component
// name, for code paths that run before configuration is loaded.
func NewComponent(component string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	logger := zerolog.New(os.Stderr).
		With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{Logger: logger}
}

// WithRun returns a logger carrying the run correlation id.
func (l *Logger) WithRun(correlationID string) *Logger {
	logger := l.Logger.With().Str("correlation_id", correlationID).Logger()
	return &Logger{Logger: logger, structured: l.structured}
}

// WithZone returns a logger scoped to one landing zone. Account and
// role fields are attached only in structured mode.
func (l *Logger) WithZone(zone types.Zone, operation string) *Logger {
	if !l.structured {
		logger := l.Logger.With().Str("zone", zone.Name).Logger()
		return &Logger{Logger: logger}
	}
	logger := l.Logger.With().
		Str("account_id", zone.AccountID).
		Str("account_name", zone.Name).
		Str("role_name", zone.RoleName).
		Str("operation", operation).
		Str("region", zone.Region).
		Logger()
	return &Logger{Logger: logger, structured: true}
}
