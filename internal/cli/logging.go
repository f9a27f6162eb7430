package cli

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// consoleLogger is the human-readable logger for interactive commands.
func consoleLogger(w io.Writer, level string) zerolog.Logger {
	lvl := parseLevel(level)
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}

// jsonLogger is the structured logger for the daemon.
func jsonLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Str("service", "nlpd").Logger()
}
