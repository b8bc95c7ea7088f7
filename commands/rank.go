package commands

import (
	"context"
	"errors"

	"github.com/EasterCompany/dex-leveling-service/leaderboard"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/utils"
	"github.com/bwmarrin/discordgo"
)

const (
	colorBlurple = 0x5865F2

	msgBotsHaveNoLevels = "Bots don't have levels!"
	msgMemberNotFound   = "I couldn't find that member."
	msgEmptyLeaderboard = "The leaderboard is currently empty."
	msgNotOwner         = "You can't control this leaderboard."
	msgExpired          = "This leaderboard has expired. Run the command again to open a new one."
	msgFailed           = "Something went wrong, please try again later."
)

func (h *Handler) handleRank(ctx context.Context, m *discordgo.Message, args []string) {
	targetID := m.Author.ID
	if len(args) > 0 {
		id, ok := utils.ParseUserMention(args[0])
		if !ok {
			h.sendResponse(ctx, m.ChannelID, msgMemberNotFound)
			return
		}
		targetID = id
	}

	member, err := h.members.Member(ctx, m.GuildID, targetID)
	if err != nil {
		h.sendResponse(ctx, m.ChannelID, msgMemberNotFound)
		return
	}
	if member.Bot() {
		h.sendResponse(ctx, m.ChannelID, msgBotsHaveNoLevels)
		return
	}

	progress, err := h.ranks.Get(ctx, m.GuildID, targetID)
	if err != nil {
		h.logger.Error("failed to load progress", "guild", m.GuildID, "user", targetID, dexlog.Err(err))
		h.sendResponse(ctx, m.ChannelID, msgFailed)
		return
	}
	rank, err := h.ranks.Rank(ctx, m.GuildID, targetID)
	if err != nil {
		h.logger.Error("failed to load rank", "guild", m.GuildID, "user", targetID, dexlog.Err(err))
		h.sendResponse(ctx, m.ChannelID, msgFailed)
		return
	}

	h.sendEmbed(ctx, m.ChannelID, leaderboard.RankEmbed(leaderboard.RankCard{
		DisplayName: h.members.DisplayName(ctx, m.GuildID, targetID),
		AvatarURL:   h.members.AvatarURL(ctx, m.GuildID, targetID),
		Color:       colorBlurple,
		XP:          progress.XP,
		Rank:        rank,
	}))
}

func (h *Handler) handleLeaderboard(ctx context.Context, m *discordgo.Message) {
	pager, page, err := h.boards.Open(ctx, m.GuildID, m.Author.ID)
	if errors.Is(err, leaderboard.ErrEmpty) {
		h.sendResponse(ctx, m.ChannelID, msgEmptyLeaderboard)
		return
	}
	if err != nil {
		h.logger.Error("failed to open leaderboard", "guild", m.GuildID, dexlog.Err(err))
		h.sendResponse(ctx, m.ChannelID, msgFailed)
		return
	}

	messageID, err := h.responder.SendEmbed(ctx, m.ChannelID, h.leaderboardEmbed(ctx, pager, page), leaderboard.Components(pager.ID, page, false))
	if err != nil {
		h.boards.Close(pager.ID)
		h.logger.Warn("failed to post leaderboard", "channel", m.ChannelID, dexlog.Err(err))
		return
	}
	pager.Bind(m.ChannelID, messageID)
}

func (h *Handler) leaderboardEmbed(ctx context.Context, pager *leaderboard.Pager, page leaderboard.Page) *discordgo.MessageEmbed {
	names := func(userID string) string {
		return h.members.DisplayName(ctx, pager.GuildID, userID)
	}
	return leaderboard.Embed(
		h.members.GuildName(pager.GuildID),
		names(pager.OwnerID),
		page,
		names,
	)
}

// HandleComponent processes a leaderboard button press and reports whether
// the interaction belonged to a leaderboard.
func (h *Handler) HandleComponent(ctx context.Context, i *discordgo.Interaction) bool {
	if i.Type != discordgo.InteractionMessageComponent {
		return false
	}
	pagerID, action, ok := leaderboard.ParseCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return false
	}

	pager, ok := h.boards.Lookup(pagerID)
	if !ok {
		h.ephemeral(ctx, i, msgExpired)
		return true
	}

	var (
		page leaderboard.Page
		err  error
	)
	actor := interactionUser(i)
	switch action {
	case leaderboard.ActionNext:
		page, err = pager.Next(ctx, actor)
	default:
		page, err = pager.Prev(ctx, actor)
	}
	switch {
	case errors.Is(err, leaderboard.ErrNotOwner):
		h.ephemeral(ctx, i, msgNotOwner)
		return true
	case errors.Is(err, leaderboard.ErrClosed):
		h.ephemeral(ctx, i, msgExpired)
		return true
	case err != nil:
		h.logger.Error("failed to turn leaderboard page", "pager", pagerID, dexlog.Err(err))
		h.ephemeral(ctx, i, msgFailed)
		return true
	}

	h.boards.Touch(pagerID)
	if err := h.responder.UpdateInteraction(ctx, i, h.leaderboardEmbed(ctx, pager, page), leaderboard.Components(pager.ID, page, false)); err != nil {
		h.logger.Warn("failed to update leaderboard", "pager", pagerID, dexlog.Err(err))
	}
	return true
}

func (h *Handler) ephemeral(ctx context.Context, i *discordgo.Interaction, content string) {
	if err := h.responder.Ephemeral(ctx, i, content); err != nil {
		h.logger.Warn("failed to answer interaction", "interaction", i.ID, dexlog.Err(err))
	}
}

func interactionUser(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
