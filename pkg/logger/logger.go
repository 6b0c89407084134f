package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const DefaultLevel = "warn"

var log zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	SetOutput(os.Stderr)
	SetLevel(DefaultLevel)
}

// SetOutput redirects log events. Stdout is reserved for response data, so
// the default sink is stderr.
func SetOutput(w io.Writer) {
	log = zerolog.New(w).
		With().
		Timestamp().
		Str("app", "pgbuild").
		Logger()
}

func GetLogger() zerolog.Logger {
	return log
}

// ParseLevel maps a user-supplied level name to a zerolog level, falling
// back to warn for anything unrecognised.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}

func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}
