// Package preinit provides a logger for the application before configuration
// is loaded and the Discord session exists.
package preinit

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// NewLogger returns a stderr logger at info level.
func NewLogger() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))
}

// Fatal logs err and exits the program.
func Fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, tint.Err(err))
	os.Exit(1)
}
