package leaderboard

import (
	"fmt"
	"strings"

	"github.com/EasterCompany/dex-leveling-service/leveling"
	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

const (
	colorGold = 0xF1C40F

	barLength = 12
	barFilled = "█"
	barEmpty  = "░"
)

var medals = map[int]string{1: "🥇", 2: "🥈", 3: "🥉"}

// NameFunc resolves a user's display name.
type NameFunc func(userID string) string

// Embed renders a page of the leaderboard.
func Embed(guildName, requester string, page Page, name NameFunc) *discordgo.MessageEmbed {
	var b strings.Builder
	for _, e := range page.Entries {
		badge, ok := medals[e.Rank]
		if !ok {
			badge = fmt.Sprintf("**%d.**", e.Rank)
		}
		fmt.Fprintf(&b, "%s **%s**\n`Level: %-3d | Total XP: %7s`\n", badge, name(e.UserID), e.Level, humanize.Comma(e.XP))
	}
	description := b.String()
	if description == "" {
		description = "No users found on this page."
	}

	return &discordgo.MessageEmbed{
		Title:       "🏆 Leaderboard for " + guildName,
		Description: description,
		Color:       colorGold,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d of %d | Requested by %s", page.Number, page.Total, requester),
		},
	}
}

// Components renders the prev/next buttons. Disabled renders both inert.
func Components(pagerID string, page Page, disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "< Previous",
				Style:    discordgo.PrimaryButton,
				CustomID: CustomID(pagerID, ActionPrev),
				Disabled: disabled || page.First(),
			},
			discordgo.Button{
				Label:    "Next >",
				Style:    discordgo.PrimaryButton,
				CustomID: CustomID(pagerID, ActionNext),
				Disabled: disabled || page.Last(),
			},
		}},
	}
}

// DisabledComponents renders both buttons inert for an expired pager.
func DisabledComponents(pagerID string) []discordgo.MessageComponent {
	return Components(pagerID, Page{}, true)
}

// ProgressBar draws fraction as a fixed-width bar.
func ProgressBar(fraction float64) string {
	filled := int(fraction * barLength)
	filled = max(0, min(barLength, filled))
	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, barLength-filled)
}

// RankCard describes one member's standing.
type RankCard struct {
	DisplayName string
	AvatarURL   string
	Color       int
	XP          int64
	Rank        int64
}

// RankEmbed renders a member's rank card.
func RankEmbed(card RankCard) *discordgo.MessageEmbed {
	progress := leveling.ProgressOf(card.XP)
	return &discordgo.MessageEmbed{
		Color: card.Color,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    "Rank for " + card.DisplayName,
			IconURL: card.AvatarURL,
		},
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: card.AvatarURL},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Level", Value: fmt.Sprintf("**%d**", progress.Level), Inline: true},
			{Name: "Total XP", Value: "**" + humanize.Comma(card.XP) + "**", Inline: true},
			{Name: "Server Rank", Value: fmt.Sprintf("**#%d**", card.Rank), Inline: true},
			{
				Name: fmt.Sprintf("Progress to Level %d", progress.Level+1),
				Value: fmt.Sprintf("`%s`\n`%s / %s XP`",
					ProgressBar(progress.Fraction()),
					humanize.Comma(progress.IntoLevel),
					humanize.Comma(progress.Span)),
			},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Gain XP by sending messages and talking in voice channels."},
	}
}
