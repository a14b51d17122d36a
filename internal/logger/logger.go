package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// DefaultDir is where per-run log files are written
const DefaultDir = "logs"

// Options configures logger construction
type Options struct {
	Level  string    // trace, debug, info, warn, error; default info
	Format string    // console or json; default console
	Output io.Writer // default os.Stderr

	// NoColor disables ANSI colors in console output, e.g. when not a terminal
	NoColor bool

	// File, when set, receives a JSON copy of every event. When empty and
	// Symbol is set, the file is Dir/<SYMBOL>_<interval>_<date>.log.
	File     string
	Dir      string
	Symbol   string
	Interval string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel maps a level name to a zerolog level; empty means info
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// LogFileName returns <SYMBOL>_<interval>_<date>.log
func LogFileName(symbol, interval string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.log", strings.ToUpper(symbol), interval, now.Format("2006-01-02"))
}

// New builds a zerolog logger. The returned closer releases the log file and
// must be closed by the caller; it is a no-op when no file is used.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var console io.Writer
	switch strings.ToLower(opts.Format) {
	case "", FormatConsole:
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: opts.NoColor}
	case FormatJSON:
		console = out
	default:
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log format %q (expected console or json)", opts.Format)
	}

	path := resolvePath(opts)
	if path == "" {
		return zerolog.New(console).Level(level).With().Timestamp().Logger(), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
	}

	log := zerolog.New(zerolog.MultiLevelWriter(console, file)).Level(level).With().Timestamp().Logger()
	log.Info().
		Str("symbol", opts.Symbol).
		Str("interval", opts.Interval).
		Str("log_file", path).
		Msg("Backtest session started")

	return log, file, nil
}

func resolvePath(opts Options) string {
	if opts.File != "" {
		return opts.File
	}
	if opts.Symbol == "" {
		return ""
	}
	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir
	}
	interval := opts.Interval
	if interval == "" {
		interval = "na"
	}
	return filepath.Join(dir, LogFileName(opts.Symbol, interval, time.Now()))
}
