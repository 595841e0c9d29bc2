// Package logger configures the zerolog logger shared by diskup commands.
package logger

import (
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const DefaultLevel = zerolog.InfoLevel

func init() {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}
}

// ParseLevel accepts zerolog level names case-insensitively. An empty name means DefaultLevel.
func ParseLevel(name string) (zerolog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return DefaultLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return DefaultLevel, err
	}
	if level == zerolog.NoLevel {
		return DefaultLevel, nil
	}
	return level, nil
}

// New returns a console logger on w with caller info. An unknown level falls back to
// DefaultLevel and is reported once at warn level.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := ParseLevel(level)

	l := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(lvl)

	if err != nil {
		l.Warn().Err(err).Str("level", level).Msg("invalid log level, defaulting to info")
	}
	return l
}
