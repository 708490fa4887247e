// ABOUTME: Structured logging setup using zerolog
// ABOUTME: Builds configured console or JSON loggers for the engine and CLI

package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "quiet":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a console logger for human-readable output
func New(level string, output io.Writer) zerolog.Logger {
	if output == nil {
		output = os.Stderr
	}

	writer := zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}

	return zerolog.New(writer).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// NewJSON creates a JSON logger for structured output
func NewJSON(level string, output io.Writer) zerolog.Logger {
	if output == nil {
		output = os.Stderr
	}

	return zerolog.New(output).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// Nop returns a logger that discards everything; used as the default
// when a component is constructed without a logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
