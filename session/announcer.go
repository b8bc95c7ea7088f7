package session

import (
	"context"
	"fmt"

	"github.com/EasterCompany/dex-leveling-service/interfaces"
	"github.com/bwmarrin/discordgo"
)

const colorGold = 0xF1C40F

// Announcer posts level-up embeds.
type Announcer struct {
	api       API
	directory *Directory
}

var _ interfaces.Announcer = (*Announcer)(nil)

func NewAnnouncer(api API, directory *Directory) *Announcer {
	return &Announcer{api: api, directory: directory}
}

func (a *Announcer) Announce(ctx context.Context, ann interfaces.Announcement) error {
	_, err := a.api.ChannelMessageSendComplex(ann.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{a.embed(ctx, ann)},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{ann.UserID},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to announce level %d for %s in %s: %w", ann.Level, ann.UserID, ann.ChannelID, err)
	}
	return nil
}

// LevelUpEmbed renders the announcement without member lookups.
func LevelUpEmbed(ann interfaces.Announcement, avatarURL string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "🎉 Level Up! 🎉",
		Description: fmt.Sprintf("Congratulations <@%s>, you have reached **Level %d**!", ann.UserID, ann.Level),
		Color:       colorGold,
	}
	if avatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: avatarURL}
	}
	if ann.RoleID != "" {
		embed.Fields = []*discordgo.MessageEmbedField{{
			Name:  "Role Awarded!",
			Value: fmt.Sprintf("You've earned the <@&%s> role!", ann.RoleID),
		}}
	}
	return embed
}

func (a *Announcer) embed(ctx context.Context, ann interfaces.Announcement) *discordgo.MessageEmbed {
	var avatar string
	if a.directory != nil {
		if m, err := a.directory.discordMember(ctx, ann.GuildID, ann.UserID); err == nil {
			avatar = m.AvatarURL("")
		}
	}
	return LevelUpEmbed(ann, avatar)
}
