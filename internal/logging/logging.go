// Package logging builds the engine's zerolog loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Format selects how log lines are written.
type Format string

const (
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
)

// ParseFormat returns the Format named by s, or false when s names none.
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(s)) {
	case FormatPretty:
		return FormatPretty, true
	case FormatJSON:
		return FormatJSON, true
	default:
		return "", false
	}
}

// New returns a logger writing to w. A nil writer means stdout.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), eris.Wrapf(err, "invalid log level %q", level)
	}
	f, ok := ParseFormat(format)
	if !ok {
		return zerolog.Nop(), eris.Errorf("invalid log format %q (must be 'json' or 'pretty')", format)
	}
	if w == nil {
		w = os.Stdout
	}
	if f == FormatPretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Logger(), nil
}

// Component derives a child logger tagged with the component name.
func Component(parent zerolog.Logger, name string) zerolog.Logger {
	return parent.With().Str("component", name).Logger()
}
