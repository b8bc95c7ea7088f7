package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// RouteDiscordgo sends discordgo's internal logging through logger.
func RouteDiscordgo(logger *slog.Logger) {
	logger = Named(logger, "discordgo")
	discordgo.Logger = func(msgL, caller int, format string, a ...interface{}) {
		logger.Log(context.Background(), discordgoLevel(msgL), fmt.Sprintf(format, a...))
	}
}

func discordgoLevel(msgL int) slog.Level {
	switch msgL {
	case discordgo.LogError:
		return slog.LevelError
	case discordgo.LogWarning:
		return slog.LevelWarn
	case discordgo.LogInformational:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
