// Package logging builds the zerolog logger the rest of the engine uses.
// Console output is human-readable, JSON output is for log shippers, and an
// optional file receives a copy of everything.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config configures the logger.
type Config struct {
	Level    string `mapstructure:"level" yaml:"level"`
	Format   string `mapstructure:"format" yaml:"format"`
	FilePath string `mapstructure:"file" yaml:"file,omitempty"`
	NoColor  bool   `mapstructure:"no_color" yaml:"no_color,omitempty"`
}

// DefaultConfig returns info-level console logging.
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatConsole}
}

// ParseLevel parses a level name. Unknown names fall back to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New builds a logger writing to w and, when cfg.FilePath is set, to that
// file as well. The returned closer closes the file.
func New(cfg Config, w io.Writer) (zerolog.Logger, io.Closer, error) {
	if w == nil {
		w = os.Stderr
	}

	var out io.Writer = w
	if cfg.Format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: w, NoColor: cfg.NoColor, TimeFormat: time.TimeOnly}
	}

	closer := io.Closer(nopCloser{})
	if cfg.FilePath != "" {
		f, err := openFile(cfg.FilePath)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		out = zerolog.MultiLevelWriter(out, f)
		closer = f
	}

	logger := zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}

// Setup builds a logger and installs it as the global zerolog logger, which
// components fall back to when no logger is injected.
func Setup(cfg Config, w io.Writer) (io.Closer, error) {
	logger, closer, err := New(cfg, w)
	if err != nil {
		return nil, err
	}
	zlog.Logger = logger
	zerolog.DefaultContextLogger = &zlog.Logger
	return closer, nil
}

// WithComponent tags a logger with a component name.
func WithComponent(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

func openFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
