package cli

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// newLogger builds the CLI logger. verbose forces debug level.
func newLogger(w io.Writer, format, level string, verbose bool) (zerolog.Logger, error) {
	if verbose {
		level = "debug"
	}
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), newUsageErrorf("invalid --log-level %q (allowed: debug, info, warn, error)", level)
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return zerolog.New(output).Level(lvl).With().Timestamp().Logger(), nil
	case "json":
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
	}
	return zerolog.Nop(), newUsageErrorf("invalid --log-format %q (allowed: console, json)", format)
}
