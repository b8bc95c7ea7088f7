// Package guild resolves per-guild level settings.
package guild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EasterCompany/dex-leveling-service/interfaces"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/store"
)

var ErrForeignChannel = errors.New("channel does not belong to this guild")

// Resolver picks the channel for level-up announcements: the configured
// channel, else the system channel, else the first writable channel.
type Resolver struct {
	settings store.SettingsStore
	channels interfaces.ChannelLocator
	logger   *slog.Logger
}

func NewResolver(settings store.SettingsStore, channels interfaces.ChannelLocator, logger *slog.Logger) *Resolver {
	return &Resolver{
		settings: settings,
		channels: channels,
		logger:   dexlog.Named(logger, "guild"),
	}
}

// AnnouncementChannel returns "" when no channel resolves.
func (r *Resolver) AnnouncementChannel(ctx context.Context, guildID string) (string, error) {
	configured, err := r.settings.LevelUpChannel(ctx, guildID)
	if err != nil {
		// fall back rather than lose the announcement
		r.logger.Warn("could not read level-up channel", "guild", guildID, dexlog.Err(err))
	}
	if configured != "" {
		owner, err := r.channels.ChannelGuild(ctx, configured)
		if err != nil {
			return "", fmt.Errorf("failed to look up channel %s: %w", configured, err)
		}
		if owner == guildID {
			return configured, nil
		}
		r.logger.Warn("configured level-up channel is gone", "guild", guildID, "channel", configured)
	}

	system, err := r.channels.SystemChannel(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("failed to look up system channel for %s: %w", guildID, err)
	}
	if system != "" {
		return system, nil
	}
	return r.channels.FirstWritableChannel(ctx, guildID)
}

// Configured returns the explicitly configured channel, or "".
func (r *Resolver) Configured(ctx context.Context, guildID string) (string, error) {
	return r.settings.LevelUpChannel(ctx, guildID)
}

// Configure sets the announcement channel. The channel must belong to guildID.
func (r *Resolver) Configure(ctx context.Context, guildID, channelID string) error {
	owner, err := r.channels.ChannelGuild(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to look up channel %s: %w", channelID, err)
	}
	if owner != guildID {
		return ErrForeignChannel
	}
	return r.settings.SetLevelUpChannel(ctx, guildID, channelID)
}

// Disable clears the configured channel so the fallbacks apply.
func (r *Resolver) Disable(ctx context.Context, guildID string) error {
	return r.settings.SetLevelUpChannel(ctx, guildID, "")
}
