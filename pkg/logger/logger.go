// Package logx configures the process-wide zerolog logger.
package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Level is a zerolog level name (trace, debug, info, warn, error).
	// Unrecognized values fall back to info.
	Level        string `split_words:"true" default:"info"`
	PrettyFormat bool   `split_words:"true" default:"false"`
}

// Init replaces the global logger. Structured JSON on stdout by default;
// PrettyFormat switches to the human-readable console writer.
func Init(conf Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if conf.PrettyFormat {
		out = zerolog.NewConsoleWriter()
	}

	log.Logger = zerolog.New(out).
		Level(parseLevel(conf.Level)).
		With().
		Timestamp().
		Caller().
		Logger()
}

func parseLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
