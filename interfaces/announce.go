package interfaces

import "context"

// Announcement describes a level-up to post.
type Announcement struct {
	GuildID   string
	ChannelID string
	UserID    string
	Level     int64
	// RoleID is the highest tier role added in this transition, if any.
	RoleID string
}

// Announcer posts level-up announcements.
type Announcer interface {
	Announce(ctx context.Context, a Announcement) error
}

// ChannelLocator answers the channel questions behind announcement routing.
type ChannelLocator interface {
	// ChannelGuild returns the guild owning channelID, or "" if unknown.
	ChannelGuild(ctx context.Context, channelID string) (string, error)
	// SystemChannel returns the guild's system channel, or "".
	SystemChannel(ctx context.Context, guildID string) (string, error)
	// FirstWritableChannel returns the first text channel the bot may post in, or "".
	FirstWritableChannel(ctx context.Context, guildID string) (string, error)
}
