// Package levelup reconciles tier roles and announces level transitions.
package levelup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EasterCompany/dex-leveling-service/interfaces"
	"github.com/EasterCompany/dex-leveling-service/leveling"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/metrics"
)

const auditReason = "Level tier update"

// ChannelResolver picks the announcement channel for a guild; "" skips.
type ChannelResolver interface {
	AnnouncementChannel(ctx context.Context, guildID string) (string, error)
}

type Handler struct {
	tiers     leveling.TierRoleMap
	channels  ChannelResolver
	announcer interfaces.Announcer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(tiers leveling.TierRoleMap, channels ChannelResolver, announcer interfaces.Announcer, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		tiers:     tiers,
		channels:  channels,
		announcer: announcer,
		metrics:   m,
		logger:    dexlog.Named(logger, "levelup"),
	}
}

// LevelUp handles a transition to a higher level. The new progress is
// already persisted. Role and announcement failures are logged only.
func (h *Handler) LevelUp(ctx context.Context, member interfaces.Member, from, to int64) {
	h.metrics.LevelUp()
	log := h.logger.With("guild", member.GuildID(), "user", member.UserID(), "from", from, "to", to)
	log.Info("member levelled up")

	diff, err := h.Reconcile(ctx, member, to)
	if err != nil {
		log.Warn("tier roles not fully reconciled", dexlog.Err(err))
	}

	channelID, err := h.channels.AnnouncementChannel(ctx, member.GuildID())
	if err != nil {
		h.metrics.Announcement("failed")
		log.Warn("could not resolve announcement channel", dexlog.Err(err))
		return
	}
	if channelID == "" {
		h.metrics.Announcement("skipped")
		return
	}

	ann := interfaces.Announcement{
		GuildID:   member.GuildID(),
		ChannelID: channelID,
		UserID:    member.UserID(),
		Level:     to,
	}
	if tier, ok := h.tiers.Highest(diff.ToAdd); ok {
		ann.RoleID = tier.RoleID
	}
	if err := h.announcer.Announce(ctx, ann); err != nil {
		h.metrics.Announcement("failed")
		log.Warn("level-up announcement failed", "channel", channelID, dexlog.Err(err))
		return
	}
	h.metrics.Announcement("sent")
}

// Reconcile brings member's tier roles in line with level: every tier at or
// below level is held, every tier above is not. Additions and removals are
// two independent batched calls; a failure in one does not skip the other.
// The returned diff is what was attempted.
func (h *Handler) Reconcile(ctx context.Context, member interfaces.Member, level int64) (leveling.Diff, error) {
	diff := h.tiers.Diff(level, member.RoleIDs())

	var errs []error
	if len(diff.ToAdd) > 0 {
		if err := member.AddRoles(ctx, diff.ToAdd, auditReason); err != nil {
			h.metrics.RoleMutationFailed("add")
			errs = append(errs, fmt.Errorf("adding %v: %w", diff.ToAdd, err))
		}
	}
	if len(diff.ToRemove) > 0 {
		if err := member.RemoveRoles(ctx, diff.ToRemove, auditReason); err != nil {
			h.metrics.RoleMutationFailed("remove")
			errs = append(errs, fmt.Errorf("removing %v: %w", diff.ToRemove, err))
		}
	}
	return diff, errors.Join(errs...)
}
