package session

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/EasterCompany/dex-leveling-service/interfaces"
	"github.com/bwmarrin/discordgo"
)

// Member adapts a *discordgo.Member to interfaces.Member. Role changes are
// applied as one member edit per batch.
type Member struct {
	api     API
	guildID string
	userID  string
	bot     bool

	mu    sync.Mutex
	roles []string
}

var _ interfaces.Member = (*Member)(nil)

func NewMember(api API, guildID string, m *discordgo.Member) *Member {
	out := &Member{api: api, guildID: guildID, roles: slices.Clone(m.Roles)}
	if m.User != nil {
		out.userID = m.User.ID
		out.bot = m.User.Bot
	}
	return out
}

func (m *Member) GuildID() string { return m.guildID }
func (m *Member) UserID() string  { return m.userID }
func (m *Member) Bot() bool       { return m.bot }

func (m *Member) RoleIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.roles)
}

func (m *Member) AddRoles(ctx context.Context, roleIDs []string, reason string) error {
	return m.edit(ctx, reason, func(current []string) []string {
		for _, id := range roleIDs {
			if !slices.Contains(current, id) {
				current = append(current, id)
			}
		}
		return current
	})
}

func (m *Member) RemoveRoles(ctx context.Context, roleIDs []string, reason string) error {
	return m.edit(ctx, reason, func(current []string) []string {
		return slices.DeleteFunc(current, func(id string) bool {
			return slices.Contains(roleIDs, id)
		})
	})
}

func (m *Member) edit(ctx context.Context, reason string, change func([]string) []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	roles := change(slices.Clone(m.roles))
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(reason))
	}
	updated, err := m.api.GuildMemberEdit(m.guildID, m.userID, &discordgo.GuildMemberParams{Roles: &roles}, opts...)
	if err != nil {
		return fmt.Errorf("failed to edit roles of %s in %s: %w", m.userID, m.guildID, err)
	}
	if updated != nil && updated.Roles != nil {
		m.roles = slices.Clone(updated.Roles)
	} else {
		m.roles = roles
	}
	return nil
}
