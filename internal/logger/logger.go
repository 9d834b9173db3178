// Package logger configures the process-wide zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger holds the logging options shared by every command.
type Logger struct {
	Level  string // trace, debug, info, warn, error
	Format string // console or json
}

// Setup installs the global logger writing to stderr.
func (l Logger) Setup() error {
	return l.SetupTo(os.Stderr)
}

// SetupTo installs the global logger writing to w.
func (l Logger) SetupTo(w io.Writer) error {
	level := zerolog.InfoLevel
	if l.Level != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(l.Level))
		if err != nil {
			return fmt.Errorf("log level %q: %w", l.Level, err)
		}
		level = lvl
	}
	zerolog.SetGlobalLevel(level)

	switch strings.ToLower(l.Format) {
	case "", "console":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	case "json":
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	default:
		return fmt.Errorf("log format %q: want console or json", l.Format)
	}
	return nil
}
