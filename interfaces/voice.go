package interfaces

import "context"

// VoiceMember is an occupant of a voice channel at the instant of a tick.
type VoiceMember struct {
	Member
	AFK      bool
	SelfMute bool
	SelfDeaf bool
}

// VoiceChannel is a snapshot of one occupied voice channel.
type VoiceChannel struct {
	GuildID   string
	ChannelID string
	Members   []VoiceMember
}

// VoiceSource snapshots every occupied voice channel in every served guild.
type VoiceSource interface {
	VoiceChannels(ctx context.Context) ([]VoiceChannel, error)
}
