// Package logging builds the process-wide log sink shared by every
// connection.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLogLevel overrides the configured level when set to a known level.
const EnvLogLevel = "CHIP_TOOL_LOG_LEVEL"

// DefaultFileName is the log file written beside the executable.
const DefaultFileName = "chip-tool.log"

// Config selects where and how much to log.
type Config struct {
	Level   string
	File    string // empty disables file output
	NoColor bool
	Console io.Writer // defaults to os.Stdout
}

// New returns a logger writing human-readable lines to the console and JSON
// lines to cfg.File. The returned closer releases the file.
func New(cfg Config) (zerolog.Logger, func() error, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		NoColor:    cfg.NoColor,
		TimeFormat: time.RFC3339,
	}}

	closer := func() error { return nil }
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f.Close
	}

	level := ParseLevel(cfg.Level)
	if lvl, ok := lookupLevel(os.Getenv(EnvLogLevel)); ok {
		level = lvl
	}

	// Every connection logs through this one writer.
	sink := zerolog.SyncWriter(zerolog.MultiLevelWriter(writers...))
	logger := zerolog.New(sink).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}

// ParseLevel converts a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	if lvl, ok := lookupLevel(s); ok {
		return lvl
	}
	return zerolog.InfoLevel
}

func lookupLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

// DefaultFile returns the path of DefaultFileName in the executable's
// directory, or in the working directory if that cannot be determined.
func DefaultFile() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(filepath.Dir(exe), DefaultFileName)
}
