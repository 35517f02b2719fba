// Package logging configures the process-wide zerolog logger. The terminal
// belongs to the chat screen, so logs go to a file or to stderr.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points log.Logger at file (or stderr when empty) with the given level
// and returns a closer for the file.
func Setup(level, file string) (io.Closer, error) {
	lvl := zerolog.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return nil, errors.Wrapf(err, "logging: level %q", level)
		}
		lvl = parsed
	}

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrap(err, "logging: open log file")
		}
		out, closer = f, f
	}

	log.Logger = New(out, lvl)
	zerolog.SetGlobalLevel(lvl)
	return closer, nil
}

// New builds a console logger writing to out.
func New(out io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
