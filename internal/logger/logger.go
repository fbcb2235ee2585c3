// Package logger builds the zerolog logger shared by every component.
package logger

import (
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"go-jobwatch/internal/config"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger writing to stderr and, when cfg.File is set, to a
// rotating file. The returned closer flushes the file writer.
func New(cfg config.LogConfig) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		level = parsed
	}

	writers := []io.Writer{consoleWriter(cfg.Format, os.Stderr, false)}
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return zerolog.Nop(), nil, err
		}
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
		}
		writers = append(writers, consoleWriter(cfg.Format, rotating, true))
		closer = rotating
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	//route stray std log calls (third-party libs) through zerolog
	stdlog.SetOutput(logger)
	stdlog.SetFlags(0)

	return logger, closer, nil
}

func consoleWriter(format string, out io.Writer, noColor bool) io.Writer {
	if format == FormatJSON {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: noColor}
}

// Component derives the sub-logger a component should use
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
