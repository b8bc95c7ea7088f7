// Package events handles Discord gateway events and dispatches them to the
// leveling engine and the command router.
package events

import (
	"context"
	"log/slog"

	"github.com/EasterCompany/dex-leveling-service/health"
	"github.com/EasterCompany/dex-leveling-service/interfaces"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/bwmarrin/discordgo"
)

// Accrual grants message XP.
type Accrual interface {
	HandleMessage(ctx context.Context, channelID string, author interfaces.Member) int64
}

// Commands routes prefix commands and component presses.
type Commands interface {
	HandleCommand(ctx context.Context, m *discordgo.Message) bool
	HandleComponent(ctx context.Context, i *discordgo.Interaction) bool
}

// Authors turns a message author into a guild member.
type Authors interface {
	FromMessage(ctx context.Context, m *discordgo.Message) (interfaces.Member, error)
}

// GuildMembers requests the full member list of a guild over the gateway.
type GuildMembers interface {
	RequestGuildMembers(guildID, query string, limit int, nonce string, presences bool) error
}

// Handler owns the gateway callbacks. Every callback runs under ctx so
// in-flight work stops at shutdown.
type Handler struct {
	ctx      context.Context
	accrual  Accrual
	commands Commands
	authors  Authors
	health   *health.Checker
	logger   *slog.Logger
}

func NewHandler(ctx context.Context, accrual Accrual, commands Commands, authors Authors, checker *health.Checker, logger *slog.Logger) *Handler {
	return &Handler{
		ctx:      ctx,
		accrual:  accrual,
		commands: commands,
		authors:  authors,
		health:   checker,
		logger:   dexlog.Named(logger, "events"),
	}
}

// Register attaches every callback to s.
func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(h.Ready)
	s.AddHandler(h.GuildCreate)
	s.AddHandler(h.MessageCreate)
	s.AddHandler(h.InteractionCreate)
	s.AddHandler(h.Disconnect)
	s.AddHandler(h.Resumed)
}

func (h *Handler) Ready(s *discordgo.Session, r *discordgo.Ready) {
	h.logger.Info("discord session ready",
		"user", r.User.Username,
		"guilds", len(r.Guilds))
	h.health.Set(health.StatusOK, "Service is running and connected to Discord")
}

// GuildCreate asks for the guild's member list so prune and voice lookups
// see every member, not only the ones that have spoken.
func (h *Handler) GuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	h.requestMembers(s, g.Guild)
}

func (h *Handler) requestMembers(api GuildMembers, g *discordgo.Guild) {
	if g == nil || g.Unavailable {
		return
	}
	if err := api.RequestGuildMembers(g.ID, "", 0, "", false); err != nil {
		h.logger.Warn("failed to request guild members", "guild", g.ID, dexlog.Err(err))
	}
}

func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	h.handleMessage(selfID, m.Message)
}

func (h *Handler) handleMessage(selfID string, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot || m.Author.ID == selfID || m.GuildID == "" {
		return
	}

	member, err := h.authors.FromMessage(h.ctx, m)
	if err != nil {
		h.logger.Debug("could not resolve message author",
			"guild", m.GuildID,
			"user", m.Author.ID,
			dexlog.Err(err))
	} else {
		h.accrual.HandleMessage(h.ctx, m.ChannelID, member)
	}

	h.commands.HandleCommand(h.ctx, m)
}

func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.handleInteraction(i.Interaction)
}

func (h *Handler) handleInteraction(i *discordgo.Interaction) {
	if i == nil || i.Type != discordgo.InteractionMessageComponent {
		return
	}
	h.commands.HandleComponent(h.ctx, i)
}

func (h *Handler) Disconnect(s *discordgo.Session, d *discordgo.Disconnect) {
	h.logger.Warn("discord disconnected, will attempt to reconnect")
	h.health.Set(health.StatusReconnecting, "Discord connection lost, reconnecting...")
}

func (h *Handler) Resumed(s *discordgo.Session, r *discordgo.Resumed) {
	h.logger.Info("discord connection resumed")
	h.health.Set(health.StatusOK, "Service is running and connected to Discord")
}
