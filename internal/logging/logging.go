// Package logging builds the zerolog loggers shared by the client and the server.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const permission = 0664

type Options struct {
	// Level is a zerolog level name ("debug", "info", ...). Empty means info.
	Level string
	// Path appends logs to a file instead of Output.
	Path   string
	Output io.Writer
	// Console forces human readable output. When nil it is enabled only if
	// Output is a terminal.
	Console *bool
}

// New returns a timestamped logger and a close function for the log file, if any.
func New(opts Options) (zerolog.Logger, func() error, error) {
	closer := func() error { return nil }

	w := opts.Output
	if w == nil {
		w = os.Stderr
	}

	if opts.Path != "" {
		f, err := os.OpenFile(opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return zerolog.Nop(), closer, err
		}
		w = zerolog.SyncWriter(f)
		closer = f.Close
	} else if useConsole(opts.Console, w) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), closer, err
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), closer, nil
}

// ParseLevel maps an empty string to info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(s)
}

// Component tags a logger with the subsystem name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

func useConsole(force *bool, w io.Writer) bool {
	if force != nil {
		return *force
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
