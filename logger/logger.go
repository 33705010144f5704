package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger and returns it. Debug mode writes
// human readable console output, otherwise JSON lines go to stdout.
func Setup(debug bool) zerolog.Logger {
	return setup(os.Stdout, debug)
}

func setup(out io.Writer, debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}
