// ABOUTME: Zerolog setup for the loopcap command
// ABOUTME: Writes to a console writer on stderr and to a file under the platform state dir
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hearnow/loopcap/internal/config"
	"github.com/rs/zerolog"
)

type options struct {
	console io.Writer
}

// Option adjusts logger construction
type Option func(*options)

// WithoutConsole drops the stderr writer, used while the TUI owns the screen
func WithoutConsole() Option {
	return func(o *options) {
		o.console = nil
	}
}

// WithConsole replaces stderr as the console destination
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a zerolog logger with console and file output. The returned
// closer releases the log file.
func New(cfg config.LogConfig, opts ...Option) (zerolog.Logger, io.Closer, error) {
	o := options{console: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var writers []io.Writer
	if o.console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: o.console, TimeFormat: time.RFC3339})
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != config.LogFileOff {
		logPath := cfg.File
		if logPath == "" {
			logPath = DefaultPath()
		}

		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log dir: %w", err)
		}
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, logFile)
		closer = logFile
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	multi := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(multi).Level(level).With().Timestamp().Logger(), closer, nil
}

// ParseLevel maps a config level name to a zerolog level; empty means info
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(s) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// DefaultPath returns the platform-specific log file path
func DefaultPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Logs")
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			base = xdg
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".local", "state")
		}
	}

	return filepath.Join(base, "loopcap", "loopcap.log")
}
