// Package logging builds the operator log for a sqlhealth run. Diagnosis
// results go to stdout through a renderer; this log carries timings and
// driver errors for whoever runs the tool.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/steveyegge/sqlhealth/internal/config"
)

// Loggers is the root logger plus per-module sub-loggers.
type Loggers struct {
	Root   zerolog.Logger
	Doctor zerolog.Logger
	DB     zerolog.Logger
	Creds  zerolog.Logger
	Config zerolog.Logger

	closer io.Closer
}

// Close releases the rotating log file, if one is open.
func (l *Loggers) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// New builds loggers from cfg. With cfg.File set the log is written as JSON
// lines to a size-rotated file; otherwise it goes to stderr in console
// form. verbose forces debug level.
func New(cfg config.Log, verbose bool, stderr io.Writer) *Loggers {
	level := ParseLevel(cfg.Level)
	if verbose && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	var (
		writer io.Writer
		closer io.Closer
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			writer = zerolog.ConsoleWriter{Out: stderr, TimeFormat: "15:04:05", NoColor: true}
		} else {
			lj := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			}
			writer, closer = lj, lj
		}
	} else {
		writer = zerolog.ConsoleWriter{Out: stderr, TimeFormat: "15:04:05", NoColor: true}
	}

	root := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return &Loggers{
		Root:   root,
		Doctor: root.With().Str("module", "doctor").Logger(),
		DB:     root.With().Str("module", "sqlserver").Logger(),
		Creds:  root.With().Str("module", "credentials").Logger(),
		Config: root.With().Str("module", "config").Logger(),
		closer: closer,
	}
}

// ParseLevel maps a config level name to a zerolog level. Unknown names
// fall back to warn.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}
