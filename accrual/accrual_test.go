package accrual

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/EasterCompany/dex-leveling-service/cache"
	"github.com/EasterCompany/dex-leveling-service/cooldown"
	"github.com/EasterCompany/dex-leveling-service/fakes"
	"github.com/EasterCompany/dex-leveling-service/interfaces"
	"github.com/EasterCompany/dex-leveling-service/leveling"
	"github.com/EasterCompany/dex-leveling-service/store"
	"github.com/EasterCompany/dex-leveling-service/worker"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type transition struct {
	user     string
	from, to int64
}

type recorder struct {
	mu  sync.Mutex
	got []transition
}

func (r *recorder) LevelUp(_ context.Context, m interfaces.Member, from, to int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, transition{user: m.UserID(), from: from, to: to})
}

func (r *recorder) transitions() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.got...)
}

type failingStore struct {
	store.ProgressStore
}

func (failingStore) AddXP(context.Context, string, string, int64) (store.Progress, error) {
	return store.Progress{}, errors.New("store unavailable")
}

// memStore keeps tests that check for goroutine leaks free of network clients.
type memStore struct {
	store.ProgressStore
	mu sync.Mutex
	xp map[string]int64
}

func (m *memStore) AddXP(_ context.Context, guild, user string, delta int64) (store.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.xp == nil {
		m.xp = map[string]int64{}
	}
	key := guild + "/" + user
	prev := m.xp[key]
	m.xp[key] = leveling.ClampXP(prev + delta)
	xp := m.xp[key]
	return store.Progress{GuildID: guild, UserID: user, XP: xp, Level: leveling.LevelForXP(xp), Gained: xp - prev}, nil
}

func (m *memStore) Get(_ context.Context, guild, user string) (store.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	xp := m.xp[guild+"/"+user]
	return store.Progress{GuildID: guild, UserID: user, XP: xp, Level: leveling.LevelForXP(xp)}, nil
}

func newMemEngine(cfg Config) (*Engine, *memStore) {
	st := &memStore{}
	return New(cfg, Deps{
		Store:     st,
		Cooldowns: cooldown.New(time.Minute),
		Logger:    discard,
	}), st
}

func defaultConfig() Config {
	return Config{
		MessageXPMin:        15,
		MessageXPMax:        25,
		VoiceXP:             10,
		VoiceInterval:       time.Minute,
		VoiceMinMembers:     2,
		BlacklistedChannels: []string{"muted-channel"},
	}
}

func newEngine(t *testing.T, cfg Config, mults leveling.Multipliers) (*Engine, store.ProgressStore, *recorder) {
	t.Helper()
	mr := miniredis.RunT(t)
	st := store.NewRedisStore(cache.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ""))
	t.Cleanup(func() { _ = st.Close() })

	rec := &recorder{}
	e := New(cfg, Deps{
		Store:       st,
		Cooldowns:   cooldown.New(time.Minute),
		Multipliers: mults,
		LevelUps:    rec,
		Logger:      discard,
	})
	return e, st, rec
}

func xpOf(t *testing.T, st store.ProgressStore, guild, user string) int64 {
	t.Helper()
	p, err := st.Get(context.Background(), guild, user)
	require.NoError(t, err)
	return p.XP
}

func TestHandleMessage_GrantsWithinRange(t *testing.T) {
	e, st, _ := newEngine(t, defaultConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		m := fakes.NewMember("g1", "user"+string(rune('a'+i%26))+string(rune('a'+i/26)))
		got := e.HandleMessage(ctx, "general", m)
		assert.GreaterOrEqual(t, got, int64(15))
		assert.LessOrEqual(t, got, int64(25))
		assert.Equal(t, got, xpOf(t, st, "g1", m.UserID()))
	}
}

func TestHandleMessage_CooldownGrantsOnce(t *testing.T) {
	e, st, _ := newEngine(t, defaultConfig(), nil)
	ctx := context.Background()
	m := fakes.NewMember("g1", "u1")

	first := e.HandleMessage(ctx, "general", m)
	second := e.HandleMessage(ctx, "general", m)

	assert.NotZero(t, first)
	assert.Zero(t, second)
	assert.Equal(t, first, xpOf(t, st, "g1", "u1"))
}

func TestHandleMessage_Ignored(t *testing.T) {
	e, st, _ := newEngine(t, defaultConfig(), nil)
	ctx := context.Background()

	bot := fakes.NewMember("g1", "bot")
	bot.IsBot = true
	assert.Zero(t, e.HandleMessage(ctx, "general", bot))

	dm := fakes.NewMember("", "u1")
	assert.Zero(t, e.HandleMessage(ctx, "dm", dm))

	m := fakes.NewMember("g1", "u2")
	assert.Zero(t, e.HandleMessage(ctx, "muted-channel", m))
	// blacklisted messages do not consume the cooldown
	assert.NotZero(t, e.HandleMessage(ctx, "general", m))

	n, err := st.Count(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGrant_Multiplier(t *testing.T) {
	e, st, _ := newEngine(t, defaultConfig(), leveling.Multipliers{"booster": 1.5, "vip": 2})
	ctx := context.Background()

	got, err := e.Grant(ctx, fakes.NewMember("g1", "u1", "booster", "vip"), 15, "test")
	require.NoError(t, err)
	assert.Equal(t, int64(30), got)

	got, err = e.Grant(ctx, fakes.NewMember("g1", "u2", "booster"), 15, "test")
	require.NoError(t, err)
	assert.Equal(t, int64(22), got)
	assert.Equal(t, int64(22), xpOf(t, st, "g1", "u2"))
}

func TestGrant_ZeroAmountTouchesNothing(t *testing.T) {
	e, st, rec := newEngine(t, defaultConfig(), leveling.Multipliers{"muted": 0.01})
	ctx := context.Background()

	got, err := e.Grant(ctx, fakes.NewMember("g1", "u1", "muted"), 10, "test")
	require.NoError(t, err)
	assert.Zero(t, got)

	n, err := st.Count(ctx, "g1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.transitions())
}

func TestGrant_LevelUpFiresOnce(t *testing.T) {
	e, _, rec := newEngine(t, defaultConfig(), nil)
	ctx := context.Background()
	m := fakes.NewMember("g1", "u1")

	_, err := e.Grant(ctx, m, 150, "test")
	require.NoError(t, err)
	assert.Empty(t, rec.transitions())

	_, err = e.Grant(ctx, m, 5, "test")
	require.NoError(t, err)
	_, err = e.Grant(ctx, m, 5, "test")
	require.NoError(t, err)

	assert.Equal(t, []transition{{user: "u1", from: 0, to: 1}}, rec.transitions())
}

func TestGrant_AtMaxLevelDoesNotLevelUp(t *testing.T) {
	e, st, rec := newEngine(t, defaultConfig(), nil)
	ctx := context.Background()
	m := fakes.NewMember("g1", "u1")
	require.NoError(t, st.Set(ctx, store.Progress{GuildID: "g1", UserID: "u1", XP: leveling.MaxXP, Level: leveling.MaxLevel}))

	for i := 0; i < 3; i++ {
		_, err := e.Grant(ctx, m, 25, "test")
		require.NoError(t, err)
	}
	assert.Equal(t, leveling.MaxXP, xpOf(t, st, "g1", "u1"))
	assert.Empty(t, rec.transitions())
}

func TestGrant_StoreFailureDrops(t *testing.T) {
	rec := &recorder{}
	e := New(defaultConfig(), Deps{
		Store:     failingStore{},
		Cooldowns: cooldown.New(time.Minute),
		LevelUps:  rec,
		Logger:    discard,
	})

	got, err := e.Grant(context.Background(), fakes.NewMember("g1", "u1"), 500, "test")
	assert.Error(t, err)
	assert.Zero(t, got)
	assert.Empty(t, rec.transitions())
}

func voiceMember(guild, user string) interfaces.VoiceMember {
	return interfaces.VoiceMember{Member: fakes.NewMember(guild, user)}
}

func TestVoiceTick_LoneMemberGetsNothing(t *testing.T) {
	e, st, _ := newEngine(t, defaultConfig(), nil)
	ctx := context.Background()

	n := e.VoiceTick(ctx, []interfaces.VoiceChannel{{
		GuildID:   "g1",
		ChannelID: "v1",
		Members:   []interfaces.VoiceMember{voiceMember("g1", "alone")},
	}})
	assert.Zero(t, n)
	count, err := st.Count(ctx, "g1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestVoiceTick_Qualification(t *testing.T) {
	e, st, _ := newEngine(t, defaultConfig(), leveling.Multipliers{"booster": 2})
	ctx := context.Background()

	bot := voiceMember("g1", "bot")
	bot.Member.(*fakes.Member).IsBot = true
	afk := voiceMember("g1", "afk")
	afk.AFK = true
	muted := voiceMember("g1", "muted")
	muted.SelfMute = true
	deaf := voiceMember("g1", "deaf")
	deaf.SelfDeaf = true
	boosted := interfaces.VoiceMember{Member: fakes.NewMember("g1", "boosted", "booster")}

	channels := []interfaces.VoiceChannel{
		{
			GuildID:   "g1",
			ChannelID: "v1",
			Members:   []interfaces.VoiceMember{voiceMember("g1", "a"), boosted, bot, afk, muted, deaf},
		},
		{
			// one qualifying member plus a bot: no grants
			GuildID:   "g1",
			ChannelID: "v2",
			Members:   []interfaces.VoiceMember{voiceMember("g1", "solo"), bot},
		},
	}

	assert.Equal(t, 2, e.VoiceTick(ctx, channels))
	assert.Equal(t, int64(10), xpOf(t, st, "g1", "a"))
	assert.Equal(t, int64(20), xpOf(t, st, "g1", "boosted"))
	for _, user := range []string{"bot", "afk", "muted", "deaf", "solo"} {
		assert.Zero(t, xpOf(t, st, "g1", user), user)
	}
}

func TestVoiceTick_ThroughPool(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, st := newMemEngine(defaultConfig())
	pool := worker.New(4, 16, discard)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	e.deps.Pool = pool

	members := make([]interfaces.VoiceMember, 0, 20)
	for i := 0; i < 20; i++ {
		members = append(members, voiceMember("g1", "m"+string(rune('a'+i))))
	}
	ch := []interfaces.VoiceChannel{{GuildID: "g1", ChannelID: "v", Members: members}}

	for i := 0; i < 3; i++ {
		assert.Equal(t, 20, e.VoiceTick(ctx, ch))
	}
	pool.Stop()

	for _, vm := range members {
		assert.Equal(t, int64(30), xpOf(t, st, "g1", vm.UserID()))
	}
}

func TestRunVoiceLoop_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := defaultConfig()
	cfg.VoiceInterval = 5 * time.Millisecond
	e, st := newMemEngine(cfg)

	source := &fakes.Voice{Channels: []interfaces.VoiceChannel{{
		GuildID:   "g1",
		ChannelID: "v",
		Members:   []interfaces.VoiceMember{voiceMember("g1", "a"), voiceMember("g1", "b")},
	}}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.RunVoiceLoop(ctx, source)
	}()

	assert.Eventually(t, func() bool { return source.Calls() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.GreaterOrEqual(t, xpOf(t, st, "g1", "a"), int64(20))
}
