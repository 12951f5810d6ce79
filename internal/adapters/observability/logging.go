package observability

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger writing to out.
// APP_ENV=dev (or development) uses a human-friendly console writer.
// The review CLI passes stderr so stdout carries only the run summary.
func NewLogger(env string, out io.Writer, debug bool) zerolog.Logger {
	l := zerolog.New(out).With().Timestamp().Logger()
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	if debug {
		return l.Level(zerolog.DebugLevel)
	}
	return l.Level(zerolog.InfoLevel)
}
