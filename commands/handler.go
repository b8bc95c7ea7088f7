// Package commands routes prefix commands and leaderboard button presses.
package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/EasterCompany/dex-leveling-service/admin"
	"github.com/EasterCompany/dex-leveling-service/interfaces"
	"github.com/EasterCompany/dex-leveling-service/leaderboard"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/store"
	"github.com/bwmarrin/discordgo"
)

// Responder is how commands talk back.
type Responder interface {
	Reply(ctx context.Context, channelID, content string) error
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) (string, error)
	UpdateInteraction(ctx context.Context, i *discordgo.Interaction, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error
	Ephemeral(ctx context.Context, i *discordgo.Interaction, content string) error
}

// Members resolves the people and guilds commands refer to.
type Members interface {
	interfaces.Directory
	Authority
	AvatarURL(ctx context.Context, guildID, userID string) string
	GuildName(guildID string) string
}

// Ranks is the read side of the progress store used by the rank card.
type Ranks interface {
	Get(ctx context.Context, guildID, userID string) (store.Progress, error)
	Rank(ctx context.Context, guildID, userID string) (int64, error)
}

// Handler manages all bot commands
type Handler struct {
	prefix            string
	responder         Responder
	members           Members
	ranks             Ranks
	admin             *admin.Service
	boards            *leaderboard.Manager
	permissionChecker *PermissionChecker
	logger            *slog.Logger
}

// NewHandler creates a new command handler
func NewHandler(
	prefix string,
	whitelist []string,
	responder Responder,
	members Members,
	ranks Ranks,
	adminService *admin.Service,
	boards *leaderboard.Manager,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		prefix:            prefix,
		responder:         responder,
		members:           members,
		ranks:             ranks,
		admin:             adminService,
		boards:            boards,
		permissionChecker: NewPermissionChecker(whitelist, members),
		logger:            dexlog.Named(logger, "commands"),
	}
}

// HandleCommand processes a guild message and reports whether it was a
// command this handler owns.
func (h *Handler) HandleCommand(ctx context.Context, m *discordgo.Message) bool {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return false
	}
	if !strings.HasPrefix(m.Content, h.prefix) {
		return false
	}

	parts := strings.Fields(strings.TrimPrefix(m.Content, h.prefix))
	if len(parts) == 0 {
		return false
	}
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "rank", "level":
		h.handleRank(ctx, m, args)
	case "ranklb", "topranks", "lb":
		h.handleLeaderboard(ctx, m)
	case "adminlevel":
		h.handleAdmin(ctx, m, args)
	default:
		return false
	}

	h.logger.Debug("command executed",
		"command", command,
		"guild", m.GuildID,
		"user", m.Author.ID,
		"args", args)
	return true
}

// sendResponse sends a message to a channel
func (h *Handler) sendResponse(ctx context.Context, channelID, message string) {
	if err := h.responder.Reply(ctx, channelID, message); err != nil {
		h.logger.Warn("failed to send response", "channel", channelID, dexlog.Err(err))
	}
}

func (h *Handler) sendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) {
	if _, err := h.responder.SendEmbed(ctx, channelID, embed, nil); err != nil {
		h.logger.Warn("failed to send embed", "channel", channelID, dexlog.Err(err))
	}
}
