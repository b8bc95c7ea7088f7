package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/EasterCompany/dex-leveling-service/interfaces"
	"github.com/bwmarrin/discordgo"
)

// Directory answers member, channel and voice questions from the gateway
// state cache, falling back to REST where the cache may be cold.
type Directory struct {
	api   API
	state *discordgo.State
	// canSend reports whether the bot may post in a channel.
	canSend func(channelID string) bool
}

var (
	_ interfaces.Directory      = (*Directory)(nil)
	_ interfaces.Reachability   = (*Directory)(nil)
	_ interfaces.VoiceSource    = (*Directory)(nil)
	_ interfaces.ChannelLocator = (*Directory)(nil)
)

func NewDirectory(api API, state *discordgo.State) *Directory {
	d := &Directory{api: api, state: state}
	d.canSend = d.botCanSend
	return d
}

// FromSession builds a Directory over a live session.
func FromSession(s *discordgo.Session) *Directory {
	return NewDirectory(s, s.State)
}

func (d *Directory) botCanSend(channelID string) bool {
	if d.state.User == nil {
		return false
	}
	perms, err := d.state.UserChannelPermissions(d.state.User.ID, channelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionSendMessages != 0
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func (d *Directory) discordMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, err := d.state.Member(guildID, userID); err == nil {
		return m, nil
	}
	m, err := d.api.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member %s of %s: %w", userID, guildID, err)
	}
	return m, nil
}

// Member resolves a guild member.
func (d *Directory) Member(ctx context.Context, guildID, userID string) (interfaces.Member, error) {
	m, err := d.discordMember(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	return NewMember(d.api, guildID, m), nil
}

// DisplayName returns the member's server name, or a placeholder for
// users who have left.
func (d *Directory) DisplayName(ctx context.Context, guildID, userID string) string {
	m, err := d.discordMember(ctx, guildID, userID)
	if err != nil || m.User == nil {
		return fmt.Sprintf("User (ID: %s)", userID)
	}
	return m.DisplayName()
}

func (d *Directory) GuildCount() int {
	d.state.RLock()
	defer d.state.RUnlock()
	return len(d.state.Guilds)
}

// ReachableUsers is every cached member of every served guild.
func (d *Directory) ReachableUsers(context.Context) (map[string]struct{}, error) {
	d.state.RLock()
	defer d.state.RUnlock()

	users := make(map[string]struct{})
	for _, g := range d.state.Guilds {
		for _, m := range g.Members {
			if m.User != nil {
				users[m.User.ID] = struct{}{}
			}
		}
	}
	return users, nil
}

// VoiceChannels groups cached voice states into channel snapshots. Occupants
// whose member cannot be resolved are left out.
func (d *Directory) VoiceChannels(ctx context.Context) ([]interfaces.VoiceChannel, error) {
	type snapshot struct {
		guildID, afkChannelID string
		states                []*discordgo.VoiceState
	}

	d.state.RLock()
	guilds := make([]snapshot, 0, len(d.state.Guilds))
	for _, g := range d.state.Guilds {
		guilds = append(guilds, snapshot{
			guildID:      g.ID,
			afkChannelID: g.AfkChannelID,
			states:       append([]*discordgo.VoiceState(nil), g.VoiceStates...),
		})
	}
	d.state.RUnlock()

	var out []interfaces.VoiceChannel
	for _, g := range guilds {
		byChannel := make(map[string]*interfaces.VoiceChannel)
		var order []string
		for _, vs := range g.states {
			if vs.ChannelID == "" {
				continue
			}
			m, ok := d.voiceMember(ctx, g.guildID, vs)
			if !ok {
				continue
			}
			ch, ok := byChannel[vs.ChannelID]
			if !ok {
				ch = &interfaces.VoiceChannel{GuildID: g.guildID, ChannelID: vs.ChannelID}
				byChannel[vs.ChannelID] = ch
				order = append(order, vs.ChannelID)
			}
			ch.Members = append(ch.Members, interfaces.VoiceMember{
				Member:   m,
				AFK:      g.afkChannelID != "" && vs.ChannelID == g.afkChannelID,
				SelfMute: vs.SelfMute,
				SelfDeaf: vs.SelfDeaf,
			})
		}
		for _, id := range order {
			out = append(out, *byChannel[id])
		}
	}
	return out, nil
}

// voiceMember resolves an occupant from the state cache, then the member
// attached to the voice state, then REST.
func (d *Directory) voiceMember(ctx context.Context, guildID string, vs *discordgo.VoiceState) (interfaces.Member, bool) {
	m, err := d.state.Member(guildID, vs.UserID)
	if err != nil {
		m = vs.Member
	}
	if m == nil || m.User == nil {
		m, err = d.discordMember(ctx, guildID, vs.UserID)
		if err != nil || m.User == nil {
			return nil, false
		}
	}
	return NewMember(d.api, guildID, m), true
}

// ChannelGuild returns the owning guild of channelID, or "" if it no
// longer exists.
func (d *Directory) ChannelGuild(ctx context.Context, channelID string) (string, error) {
	if ch, err := d.state.Channel(channelID); err == nil {
		return ch.GuildID, nil
	}
	ch, err := d.api.Channel(channelID, discordgo.WithContext(ctx))
	if isNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	return ch.GuildID, nil
}

func (d *Directory) SystemChannel(_ context.Context, guildID string) (string, error) {
	g, err := d.state.Guild(guildID)
	if err != nil {
		return "", nil
	}
	if g.SystemChannelID == "" || !d.canSend(g.SystemChannelID) {
		return "", nil
	}
	return g.SystemChannelID, nil
}

// FirstWritableChannel returns the top-most text channel the bot can post in.
func (d *Directory) FirstWritableChannel(_ context.Context, guildID string) (string, error) {
	g, err := d.state.Guild(guildID)
	if err != nil {
		return "", nil
	}

	d.state.RLock()
	channels := make([]*discordgo.Channel, 0, len(g.Channels))
	for _, ch := range g.Channels {
		if ch.Type == discordgo.ChannelTypeGuildText {
			channels = append(channels, ch)
		}
	}
	d.state.RUnlock()

	sort.SliceStable(channels, func(i, j int) bool { return channels[i].Position < channels[j].Position })
	for _, ch := range channels {
		if d.canSend(ch.ID) {
			return ch.ID, nil
		}
	}
	return "", nil
}

// GuildName returns the cached guild name.
func (d *Directory) GuildName(guildID string) string {
	g, err := d.state.Guild(guildID)
	if err != nil {
		return guildID
	}
	return g.Name
}

// AvatarURL returns the member's guild or user avatar, or "" if unknown.
func (d *Directory) AvatarURL(ctx context.Context, guildID, userID string) string {
	m, err := d.discordMember(ctx, guildID, userID)
	if err != nil || m.User == nil {
		return ""
	}
	return m.AvatarURL("")
}

// IsGuildOwner reports whether userID owns the cached guild.
func (d *Directory) IsGuildOwner(guildID, userID string) bool {
	g, err := d.state.Guild(guildID)
	if err != nil {
		return false
	}
	return g.OwnerID == userID
}

// Permissions computes userID's effective permissions in channelID from
// cached roles and overwrites.
func (d *Directory) Permissions(guildID, userID, channelID string) (int64, error) {
	perms, err := d.state.UserChannelPermissions(userID, channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to compute permissions of %s in %s/%s: %w", userID, guildID, channelID, err)
	}
	return perms, nil
}

// FromMessage builds the author's member from the partial member attached
// to a guild message, fetching it when the gateway omitted it.
func (d *Directory) FromMessage(ctx context.Context, m *discordgo.Message) (interfaces.Member, error) {
	if m.Member != nil {
		partial := *m.Member
		partial.User = m.Author
		return NewMember(d.api, m.GuildID, &partial), nil
	}
	return d.Member(ctx, m.GuildID, m.Author.ID)
}
