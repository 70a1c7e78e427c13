package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var devMode = false

// Setup configures the global zerolog logger. Development builds get a console writer at debug level.
func Setup(dev bool) {
	devMode = dev
	zerolog.TimeFieldFormat = time.RFC3339
	if dev {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Error logs err under context, only in development.
func Error(err error, context string) {
	if !devMode || err == nil {
		return
	}
	if context == "" {
		context = "error"
	}
	log.Err(err).Str("context", context).Msg("operation failed")
}
