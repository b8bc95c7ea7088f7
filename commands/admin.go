package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/EasterCompany/dex-leveling-service/admin"
	"github.com/EasterCompany/dex-leveling-service/guild"
	"github.com/EasterCompany/dex-leveling-service/interfaces"
	"github.com/EasterCompany/dex-leveling-service/leveling"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/utils"
	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

const (
	colorRed = 0xE74C3C

	msgNoPermission   = "You need the Manage Server permission to use this command."
	msgInvalidAmount  = "Amount must be a positive number."
	msgInvalidLevel   = "Level must be 0 or greater."
	msgInvalidChannel = "Please mention a channel in this server, e.g. `#levels`."
	msgForeignChannel = "That channel does not belong to this server."
)

var (
	msgAmountTooLarge = "Amount must be at most `" + humanize.Comma(leveling.MaxXP) + "`."
	msgLevelTooHigh   = "Level must be at most `" + humanize.Comma(leveling.MaxLevel) + "`."
)

func (h *Handler) handleAdmin(ctx context.Context, m *discordgo.Message, args []string) {
	if !h.permissionChecker.CanAdminister(m.GuildID, m.ChannelID, m.Author.ID) {
		h.sendResponse(ctx, m.ChannelID, msgNoPermission)
		h.logger.Info("admin command denied", "guild", m.GuildID, "user", m.Author.ID)
		return
	}
	if len(args) == 0 {
		h.sendEmbed(ctx, m.ChannelID, h.adminHelp())
		return
	}

	sub, rest := strings.ToLower(args[0]), args[1:]
	switch sub {
	case "addxp":
		h.adminAddXP(ctx, m, rest)
	case "removexp":
		h.adminRemoveXP(ctx, m, rest)
	case "setlevel":
		h.adminSetLevel(ctx, m, rest)
	case "reset":
		h.adminReset(ctx, m, rest)
	case "setchannel":
		h.adminSetChannel(ctx, m, rest)
	case "disablechannel":
		h.adminDisableChannel(ctx, m)
	default:
		h.sendEmbed(ctx, m.ChannelID, h.adminHelp())
	}
}

func (h *Handler) adminHelp() *discordgo.MessageEmbed {
	usage := []struct{ syntax, help string }{
		{"adminlevel addxp <@user> <amount>", "Adds XP to a user."},
		{"adminlevel removexp <@user> <amount>", "Removes XP from a user."},
		{"adminlevel setlevel <@user> <level>", "Sets a user's level."},
		{"adminlevel reset <@user>", "Resets a user's level and XP to 0."},
		{"adminlevel setchannel <#channel>", "Sets the channel for level-up messages."},
		{"adminlevel disablechannel", "Disables the custom level-up channel."},
	}
	fields := make([]*discordgo.MessageEmbedField, len(usage))
	for i, u := range usage {
		fields[i] = &discordgo.MessageEmbedField{Name: "`" + h.prefix + u.syntax + "`", Value: u.help}
	}
	return &discordgo.MessageEmbed{Title: "Admin Level Commands", Color: colorRed, Fields: fields}
}

// target resolves the member named by args[0]. It replies and returns nil
// when the argument is missing or unknown.
func (h *Handler) target(ctx context.Context, m *discordgo.Message, args []string) interfaces.Member {
	if len(args) == 0 {
		h.sendEmbed(ctx, m.ChannelID, h.adminHelp())
		return nil
	}
	userID, ok := utils.ParseUserMention(args[0])
	if !ok {
		h.sendResponse(ctx, m.ChannelID, msgMemberNotFound)
		return nil
	}
	member, err := h.members.Member(ctx, m.GuildID, userID)
	if err != nil {
		h.sendResponse(ctx, m.ChannelID, msgMemberNotFound)
		return nil
	}
	if member.Bot() {
		h.sendResponse(ctx, m.ChannelID, msgBotsHaveNoLevels)
		return nil
	}
	return member
}

// number parses args[1]. ok is false when it is missing or not an integer.
// Integers beyond int64 saturate so callers can report them as too large.
func number(args []string) (int64, bool) {
	if len(args) < 2 {
		return 0, false
	}
	n, err := strconv.ParseInt(args[1], 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return n, true
	}
	return n, err == nil
}

func (h *Handler) adminAddXP(ctx context.Context, m *discordgo.Message, args []string) {
	amount, ok := number(args)
	if !ok || amount <= 0 {
		h.sendResponse(ctx, m.ChannelID, msgInvalidAmount)
		return
	}
	if amount > leveling.MaxXP {
		h.sendResponse(ctx, m.ChannelID, msgAmountTooLarge)
		return
	}
	member := h.target(ctx, m, args)
	if member == nil {
		return
	}
	if _, err := h.admin.AddXP(ctx, member, amount); err != nil {
		h.adminFailed(ctx, m, "addxp", err)
		return
	}
	h.sendResponse(ctx, m.ChannelID, fmt.Sprintf("✅ Successfully added `%s` XP to <@%s>.", humanize.Comma(amount), member.UserID()))
}

func (h *Handler) adminRemoveXP(ctx context.Context, m *discordgo.Message, args []string) {
	amount, ok := number(args)
	if !ok || amount <= 0 {
		h.sendResponse(ctx, m.ChannelID, msgInvalidAmount)
		return
	}
	member := h.target(ctx, m, args)
	if member == nil {
		return
	}
	p, err := h.admin.RemoveXP(ctx, member, amount)
	if err != nil {
		h.adminFailed(ctx, m, "removexp", err)
		return
	}
	h.sendResponse(ctx, m.ChannelID, fmt.Sprintf("✅ Successfully removed `%s` XP from <@%s>. They are now at level `%d`.", humanize.Comma(amount), member.UserID(), p.Level))
}

func (h *Handler) adminSetLevel(ctx context.Context, m *discordgo.Message, args []string) {
	level, ok := number(args)
	if !ok || level < 0 {
		h.sendResponse(ctx, m.ChannelID, msgInvalidLevel)
		return
	}
	if level > leveling.MaxLevel {
		h.sendResponse(ctx, m.ChannelID, msgLevelTooHigh)
		return
	}
	member := h.target(ctx, m, args)
	if member == nil {
		return
	}
	if _, err := h.admin.SetLevel(ctx, member, level); err != nil {
		h.adminFailed(ctx, m, "setlevel", err)
		return
	}
	h.sendResponse(ctx, m.ChannelID, fmt.Sprintf("✅ Successfully set <@%s> to **Level %d**.", member.UserID(), level))
}

func (h *Handler) adminReset(ctx context.Context, m *discordgo.Message, args []string) {
	member := h.target(ctx, m, args)
	if member == nil {
		return
	}
	if _, err := h.admin.Reset(ctx, member); err != nil {
		h.adminFailed(ctx, m, "reset", err)
		return
	}
	h.sendResponse(ctx, m.ChannelID, fmt.Sprintf("✅ Successfully reset all level progress for <@%s>.", member.UserID()))
}

func (h *Handler) adminSetChannel(ctx context.Context, m *discordgo.Message, args []string) {
	if len(args) == 0 {
		h.sendResponse(ctx, m.ChannelID, msgInvalidChannel)
		return
	}
	channelID, ok := utils.ParseChannelMention(args[0])
	if !ok {
		h.sendResponse(ctx, m.ChannelID, msgInvalidChannel)
		return
	}
	err := h.admin.SetChannel(ctx, m.GuildID, channelID)
	if errors.Is(err, guild.ErrForeignChannel) {
		h.sendResponse(ctx, m.ChannelID, msgForeignChannel)
		return
	}
	if err != nil {
		h.adminFailed(ctx, m, "setchannel", err)
		return
	}
	h.sendResponse(ctx, m.ChannelID, fmt.Sprintf("✅ Level-up announcements will now be sent to <#%s>.", channelID))
}

func (h *Handler) adminDisableChannel(ctx context.Context, m *discordgo.Message) {
	if err := h.admin.DisableChannel(ctx, m.GuildID); err != nil {
		h.adminFailed(ctx, m, "disablechannel", err)
		return
	}
	h.sendResponse(ctx, m.ChannelID, "✅ Custom level-up channel disabled. Messages will revert to the system channel (if available).")
}

func (h *Handler) adminFailed(ctx context.Context, m *discordgo.Message, sub string, err error) {
	switch {
	case errors.Is(err, admin.ErrBot):
		h.sendResponse(ctx, m.ChannelID, msgBotsHaveNoLevels)
	case errors.Is(err, admin.ErrInvalidAmount):
		h.sendResponse(ctx, m.ChannelID, msgInvalidAmount)
	case errors.Is(err, admin.ErrInvalidLevel):
		h.sendResponse(ctx, m.ChannelID, msgInvalidLevel)
	case errors.Is(err, admin.ErrAmountTooLarge):
		h.sendResponse(ctx, m.ChannelID, msgAmountTooLarge)
	case errors.Is(err, admin.ErrLevelTooHigh):
		h.sendResponse(ctx, m.ChannelID, msgLevelTooHigh)
	default:
		h.logger.Error("admin command failed",
			"subcommand", sub,
			"guild", m.GuildID,
			"user", m.Author.ID,
			dexlog.Err(err))
		h.sendResponse(ctx, m.ChannelID, msgFailed)
	}
}
