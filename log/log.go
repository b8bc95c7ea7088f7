// Package log builds the service's slog loggers: coloured console output via
// tint, with ERROR records mirrored to a Discord log channel.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// NameKey tags child loggers with the component that owns them.
const NameKey = "logger"

// Err wraps an error as a log attribute.
var Err = tint.Err

// New returns a logger writing to w at the given level, mirroring to the
// provided Discord mirror when it is non-nil.
func New(w io.Writer, level slog.Level, mirror *DiscordMirror) *slog.Logger {
	var h slog.Handler = tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		AddSource:  level <= slog.LevelDebug,
	})
	if mirror != nil {
		h = mirror.Wrap(h)
	}
	return slog.New(h)
}

// Named returns a child logger tagged with name.
func Named(logger *slog.Logger, name string) *slog.Logger {
	return logger.With(NameKey, name)
}

// ParseLevel accepts debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
