package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/EasterCompany/dex-leveling-service/admin"
	"github.com/EasterCompany/dex-leveling-service/cache"
	"github.com/EasterCompany/dex-leveling-service/fakes"
	"github.com/EasterCompany/dex-leveling-service/guild"
	"github.com/EasterCompany/dex-leveling-service/leaderboard"
	"github.com/EasterCompany/dex-leveling-service/leveling"
	"github.com/EasterCompany/dex-leveling-service/levelup"
	"github.com/EasterCompany/dex-leveling-service/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	alice = "1001"
	bob   = "1002"
	carol = "1003"
	mod   = "1004"
	robot = "1005"
	owner = "1006"
	angel = "1007"

	levelsChannel  = "2001"
	foreignChannel = "2002"
)

type sentEmbed struct {
	channelID  string
	embed      *discordgo.MessageEmbed
	components []discordgo.MessageComponent
}

type fakeResponder struct {
	mu         sync.Mutex
	replies    []string
	embeds     []sentEmbed
	updates    []*discordgo.MessageEmbed
	ephemerals []string
}

func (r *fakeResponder) Reply(_ context.Context, _ string, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, content)
	return nil
}

func (r *fakeResponder) SendEmbed(_ context.Context, channelID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeds = append(r.embeds, sentEmbed{channelID: channelID, embed: embed, components: components})
	return "board-msg", nil
}

func (r *fakeResponder) UpdateInteraction(_ context.Context, _ *discordgo.Interaction, embed *discordgo.MessageEmbed, _ []discordgo.MessageComponent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, embed)
	return nil
}

func (r *fakeResponder) Ephemeral(_ context.Context, _ *discordgo.Interaction, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ephemerals = append(r.ephemerals, content)
	return nil
}

func (r *fakeResponder) lastReply() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		return ""
	}
	return r.replies[len(r.replies)-1]
}

type fakeMembers struct {
	*fakes.Directory
	owner string
	perms map[string]int64
}

func (f *fakeMembers) IsGuildOwner(_, userID string) bool { return userID == f.owner }

func (f *fakeMembers) Permissions(_, userID, _ string) (int64, error) {
	p, ok := f.perms[userID]
	if !ok {
		return 0, errors.New("member not cached")
	}
	return p, nil
}

func (f *fakeMembers) AvatarURL(context.Context, string, string) string { return "" }
func (f *fakeMembers) GuildName(string) string                          { return "Dexter" }

type fixture struct {
	handler   *Handler
	responder *fakeResponder
	members   *fakeMembers
	store     store.Store
	boards    *leaderboard.Manager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	st := store.NewRedisStore(cache.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ""))
	t.Cleanup(func() { _ = st.Close() })

	tiers, err := leveling.NewTierRoleMap([]leveling.Tier{{Level: 1, RoleID: "novice"}})
	require.NoError(t, err)

	members := &fakeMembers{
		Directory: &fakes.Directory{Names: map[string]string{alice: "Alice", bob: "Bob", carol: "Carol"}},
		owner:     owner,
		perms:     map[string]int64{mod: discordgo.PermissionManageGuild, alice: discordgo.PermissionSendMessages},
	}
	for _, id := range []string{alice, bob, carol, mod} {
		members.Add(fakes.NewMember("g1", id))
	}
	bot := fakes.NewMember("g1", robot)
	bot.IsBot = true
	members.Add(bot)

	channels := &fakes.Channels{
		Owners: map[string]string{levelsChannel: "g1", foreignChannel: "g2"},
		System: map[string]string{"g1": "sys"},
	}
	resolver := guild.NewResolver(st, channels, discard)
	roles := levelup.New(tiers, resolver, &fakes.Announcer{}, nil, discard)
	svc := admin.New(st, roles, resolver, nil, discard)
	boards := leaderboard.NewManager(st, 2, time.Minute, nil, nil, discard)
	t.Cleanup(boards.Shutdown)

	responder := &fakeResponder{}
	h := NewHandler("!", []string{angel}, responder, members, st, svc, boards, discard)
	return fixture{handler: h, responder: responder, members: members, store: st, boards: boards}
}

func message(author, content string) *discordgo.Message {
	return &discordgo.Message{
		GuildID:   "g1",
		ChannelID: "general",
		Content:   content,
		Author:    &discordgo.User{ID: author},
	}
}

func press(user, customID string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:     "i-" + user,
		Type:   discordgo.InteractionMessageComponent,
		Data:   discordgo.MessageComponentInteractionData{CustomID: customID},
		Member: &discordgo.Member{User: &discordgo.User{ID: user}},
	}
}

func TestHandleCommand_IgnoresNonCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.handler.HandleCommand(ctx, message(alice, "hello there")))
	assert.False(t, f.handler.HandleCommand(ctx, message(alice, "!unknown")))
	assert.False(t, f.handler.HandleCommand(ctx, message(alice, "!")))

	dm := message(alice, "!rank")
	dm.GuildID = ""
	assert.False(t, f.handler.HandleCommand(ctx, dm))
	assert.Empty(t, f.responder.replies)
	assert.Empty(t, f.responder.embeds)
}

func TestRank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.AddXP(ctx, "g1", bob, 500)
	require.NoError(t, err)
	_, err = f.store.AddXP(ctx, "g1", alice, 200)
	require.NoError(t, err)

	assert.True(t, f.handler.HandleCommand(ctx, message(alice, "!rank")))
	require.Len(t, f.responder.embeds, 1)
	card := f.responder.embeds[0].embed
	assert.Equal(t, "Rank for Alice", card.Author.Name)
	assert.Equal(t, "**1**", card.Fields[0].Value)
	assert.Equal(t, "**200**", card.Fields[1].Value)
	assert.Equal(t, "**#2**", card.Fields[2].Value)

	assert.True(t, f.handler.HandleCommand(ctx, message(alice, "!level <@1002>")))
	require.Len(t, f.responder.embeds, 2)
	assert.Equal(t, "**#1**", f.responder.embeds[1].embed.Fields[2].Value)
}

func TestRank_CreatesRecordLazily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handler.HandleCommand(ctx, message(carol, "!rank"))
	require.Len(t, f.responder.embeds, 1)
	n, err := f.store.Count(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRank_RefusesBotsAndUnknowns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handler.HandleCommand(ctx, message(alice, "!rank <@1005>"))
	assert.Equal(t, msgBotsHaveNoLevels, f.responder.lastReply())

	f.handler.HandleCommand(ctx, message(alice, "!rank <@999>"))
	assert.Equal(t, msgMemberNotFound, f.responder.lastReply())

	f.handler.HandleCommand(ctx, message(alice, "!rank nobody"))
	assert.Equal(t, msgMemberNotFound, f.responder.lastReply())
	assert.Empty(t, f.responder.embeds)
}

func TestLeaderboard_Empty(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.handler.HandleCommand(context.Background(), message(alice, "!lb")))
	assert.Equal(t, msgEmptyLeaderboard, f.responder.lastReply())
	assert.Zero(t, f.boards.Len())
}

func TestLeaderboard_Paging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for user, xp := range map[string]int64{alice: 300, bob: 200, carol: 100} {
		_, err := f.store.AddXP(ctx, "g1", user, xp)
		require.NoError(t, err)
	}

	f.handler.HandleCommand(ctx, message(alice, "!topranks"))
	require.Len(t, f.responder.embeds, 1)
	first := f.responder.embeds[0]
	assert.Contains(t, first.embed.Description, "🥇 **Alice**")
	assert.Equal(t, "Page 1 of 2 | Requested by Alice", first.embed.Footer.Text)

	require.Equal(t, 1, f.boards.Len())
	row := first.components[0].(discordgo.ActionsRow)
	prev := row.Components[0].(discordgo.Button)
	next := row.Components[1].(discordgo.Button)
	assert.True(t, prev.Disabled)
	assert.False(t, next.Disabled)

	assert.True(t, f.handler.HandleComponent(ctx, press(bob, next.CustomID)))
	assert.Equal(t, []string{msgNotOwner}, f.responder.ephemerals)
	assert.Empty(t, f.responder.updates)

	assert.True(t, f.handler.HandleComponent(ctx, press(alice, next.CustomID)))
	require.Len(t, f.responder.updates, 1)
	assert.Contains(t, f.responder.updates[0].Description, "🥉 **Carol**")
	assert.Equal(t, "Page 2 of 2 | Requested by Alice", f.responder.updates[0].Footer.Text)

	pagerID, _, ok := leaderboard.ParseCustomID(next.CustomID)
	require.True(t, ok)
	pager, ok := f.boards.Lookup(pagerID)
	require.True(t, ok)
	channelID, messageID := pager.Message()
	assert.Equal(t, "general", channelID)
	assert.Equal(t, "board-msg", messageID)

	f.boards.Close(pagerID)
	assert.True(t, f.handler.HandleComponent(ctx, press(alice, prev.CustomID)))
	assert.Equal(t, msgExpired, f.responder.ephemerals[len(f.responder.ephemerals)-1])
}

func TestHandleComponent_IgnoresForeignButtons(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.handler.HandleComponent(context.Background(), press(alice, "giveaway:enter")))
	assert.False(t, f.handler.HandleComponent(context.Background(), &discordgo.Interaction{Type: discordgo.InteractionPing}))
}

func TestAdmin_Permissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handler.HandleCommand(ctx, message(alice, "!adminlevel addxp <@1002> 50"))
	assert.Equal(t, msgNoPermission, f.responder.lastReply())
	f.handler.HandleCommand(ctx, message(carol, "!adminlevel"))
	assert.Equal(t, msgNoPermission, f.responder.lastReply())

	for _, user := range []string{mod, owner, angel} {
		f.handler.HandleCommand(ctx, message(user, "!adminlevel"))
		require.NotEmpty(t, f.responder.embeds, user)
		assert.Equal(t, "Admin Level Commands", f.responder.embeds[len(f.responder.embeds)-1].embed.Title)
	}
	assert.Len(t, f.responder.embeds[0].embed.Fields, 6)
	assert.Equal(t, "`!adminlevel addxp <@user> <amount>`", f.responder.embeds[0].embed.Fields[0].Name)
}

func TestAdmin_XPCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handler.HandleCommand(ctx, message(mod, "!adminlevel addxp <@1002> 0"))
	assert.Equal(t, msgInvalidAmount, f.responder.lastReply())
	f.handler.HandleCommand(ctx, message(mod, "!adminlevel addxp <@1002> lots"))
	assert.Equal(t, msgInvalidAmount, f.responder.lastReply())
	f.handler.HandleCommand(ctx, message(mod, "!adminlevel setlevel <@1002> -1"))
	assert.Equal(t, msgInvalidLevel, f.responder.lastReply())
	f.handler.HandleCommand(ctx, message(mod, "!adminlevel addxp <@1005> 10"))
	assert.Equal(t, msgBotsHaveNoLevels, f.responder.lastReply())

	for _, amount := range []string{"50005000101", "9223372036854775807", "99999999999999999999"} {
		f.handler.HandleCommand(ctx, message(mod, "!adminlevel addxp <@1002> "+amount))
		assert.Equal(t, msgAmountTooLarge, f.responder.lastReply(), amount)
	}
	assert.Equal(t, "Amount must be at most `50,005,000,100`.", msgAmountTooLarge)
	for _, level := range []string{"100001", "9223372036854775807", "99999999999999999999"} {
		f.handler.HandleCommand(ctx, message(mod, "!adminlevel setlevel <@1002> "+level))
		assert.Equal(t, msgLevelTooHigh, f.responder.lastReply(), level)
	}
	assert.Equal(t, "Level must be at most `100,000`.", msgLevelTooHigh)
	f.handler.HandleCommand(ctx, message(mod, "!adminlevel addxp <@1002> -99999999999999999999"))
	assert.Equal(t, msgInvalidAmount, f.responder.lastReply())

	n, err := f.store.Count(ctx, "g1")
	require.NoError(t, err)
	assert.Zero(t, n)

	f.handler.HandleCommand(ctx, message(mod, "!adminlevel addxp <@1002> 1500"))
	assert.Equal(t, "✅ Successfully added `1,500` XP to <@1002>.", f.responder.lastReply())
	p, err := f.store.Get(ctx, "g1", bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), p.XP)

	f.handler.HandleCommand(ctx, message(mod, "!adminlevel removexp <@1002> 1400"))
	assert.Equal(t, "✅ Successfully removed `1,400` XP from <@1002>. They are now at level `0`.", f.responder.lastReply())

	f.handler.HandleCommand(ctx, message(mod, "!adminlevel setlevel <@1002> 3"))
	assert.Equal(t, "✅ Successfully set <@1002> to **Level 3**.", f.responder.lastReply())
	p, err = f.store.Get(ctx, "g1", bob)
	require.NoError(t, err)
	assert.Equal(t, leveling.XPForLevel(3), p.XP)

	f.handler.HandleCommand(ctx, message(mod, "!adminlevel reset <@1002>"))
	assert.Equal(t, "✅ Successfully reset all level progress for <@1002>.", f.responder.lastReply())
	p, err = f.store.Get(ctx, "g1", bob)
	require.NoError(t, err)
	assert.Zero(t, p.XP)
	assert.Zero(t, p.Level)
}

func TestAdmin_LevelCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handler.HandleCommand(ctx, message(mod, "!adminlevel setlevel <@1002> 100000"))
	assert.Equal(t, "✅ Successfully set <@1002> to **Level 100000**.", f.responder.lastReply())
	p, err := f.store.Get(ctx, "g1", bob)
	require.NoError(t, err)
	assert.Equal(t, leveling.MaxXP, p.XP)
	assert.Equal(t, leveling.MaxLevel, p.Level)

	f.handler.HandleCommand(ctx, message(mod, "!adminlevel addxp <@1002> 50005000100"))
	assert.Equal(t, "✅ Successfully added `50,005,000,100` XP to <@1002>.", f.responder.lastReply())
	p, err = f.store.Get(ctx, "g1", bob)
	require.NoError(t, err)
	assert.Equal(t, leveling.MaxXP, p.XP)
	assert.Equal(t, leveling.MaxLevel, p.Level)
}

func TestAdmin_ChannelCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handler.HandleCommand(ctx, message(mod, "!adminlevel setchannel levels"))
	assert.Equal(t, msgInvalidChannel, f.responder.lastReply())

	f.handler.HandleCommand(ctx, message(mod, "!adminlevel setchannel <#"+foreignChannel+">"))
	assert.Equal(t, msgForeignChannel, f.responder.lastReply())

	f.handler.HandleCommand(ctx, message(mod, "!adminlevel setchannel <#"+levelsChannel+">"))
	assert.Equal(t, "✅ Level-up announcements will now be sent to <#"+levelsChannel+">.", f.responder.lastReply())
	configured, err := f.store.LevelUpChannel(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, levelsChannel, configured)

	f.handler.HandleCommand(ctx, message(mod, "!adminlevel disablechannel"))
	assert.Contains(t, f.responder.lastReply(), "Custom level-up channel disabled")
	configured, err = f.store.LevelUpChannel(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, configured)
}
