package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const EnvLogLevel = "BDECODE_LOG_LEVEL"

// New builds a console logger writing to out. The level comes from
// BDECODE_LOG_LEVEL when set, otherwise from level.
func New(out io.Writer, level string, timestamp bool) zerolog.Logger {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		return build(out, lvl, timestamp)
	}
	lvl, ok := ParseLevel(level)
	if !ok {
		lvl = zerolog.InfoLevel
	}
	return build(out, lvl, timestamp)
}

func build(out io.Writer, lvl zerolog.Level, timestamp bool) zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	ctx := zerolog.New(writer).Level(lvl).With().Str("app", "bdecode")
	if timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// ParseLevel maps a user-facing level name to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
