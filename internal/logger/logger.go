package logger

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// NewLogger writes human-readable lines to stderr at info level.
func NewLogger() zerolog.Logger {
	return newLogger(os.Stderr).Level(zerolog.InfoLevel)
}

// NewLoggerWithLevel parses level ("trace" ... "error") and returns a stderr logger at that level.
func NewLoggerWithLevel(level string) (zerolog.Logger, error) {
	return newLoggerTo(os.Stderr, level)
}

func newLoggerTo(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), errors.Wrapf(err, "invalid log level %q", level)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return newLogger(w).Level(lvl), nil
}

func newLogger(w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(output).With().Timestamp().Logger()
}
