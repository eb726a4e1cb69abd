package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the application logger. Development gets a human readable
// console writer, everything else gets JSON on stderr.
func New(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var out io.Writer = os.Stderr
	if env == "" || env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}
	}

	level := zerolog.DebugLevel
	if env == "production" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).With().Timestamp().Logger().Level(level)
}

// Setup replaces the global zerolog logger used across the app
func Setup(env string) {
	log.Logger = New(env)
}
