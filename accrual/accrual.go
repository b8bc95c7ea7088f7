// Package accrual grants experience for chat messages and voice presence.
package accrual

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/EasterCompany/dex-leveling-service/cooldown"
	"github.com/EasterCompany/dex-leveling-service/interfaces"
	"github.com/EasterCompany/dex-leveling-service/leveling"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/metrics"
	"github.com/EasterCompany/dex-leveling-service/store"
	"github.com/EasterCompany/dex-leveling-service/worker"
)

// LevelUpHandler is notified once per grant that raises a member's level.
type LevelUpHandler interface {
	LevelUp(ctx context.Context, member interfaces.Member, from, to int64)
}

type Config struct {
	MessageXPMin        int64
	MessageXPMax        int64
	VoiceXP             int64
	VoiceInterval       time.Duration
	VoiceMinMembers     int
	BlacklistedChannels []string
}

type Deps struct {
	Store       store.ProgressStore
	Cooldowns   *cooldown.Tracker
	Multipliers leveling.Multipliers
	LevelUps    LevelUpHandler
	// Pool runs voice grants concurrently; nil runs them inline.
	Pool    *worker.WorkerPool
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

type Engine struct {
	cfg       Config
	blacklist map[string]struct{}
	deps      Deps
	logger    *slog.Logger
	randN     func(n int64) int64
}

func New(cfg Config, deps Deps) *Engine {
	if cfg.VoiceMinMembers < 1 {
		cfg.VoiceMinMembers = 1
	}
	blacklist := make(map[string]struct{}, len(cfg.BlacklistedChannels))
	for _, id := range cfg.BlacklistedChannels {
		blacklist[id] = struct{}{}
	}
	return &Engine{
		cfg:       cfg,
		blacklist: blacklist,
		deps:      deps,
		logger:    dexlog.Named(deps.Logger, "accrual"),
		randN:     rand.Int64N,
	}
}

// HandleMessage grants message XP to author if eligible and returns the
// amount granted.
func (e *Engine) HandleMessage(ctx context.Context, channelID string, author interfaces.Member) int64 {
	if author == nil || author.Bot() || author.GuildID() == "" {
		return 0
	}
	if _, blocked := e.blacklist[channelID]; blocked {
		return 0
	}
	if !e.deps.Cooldowns.Allow(cooldown.Key{GuildID: author.GuildID(), UserID: author.UserID()}) {
		return 0
	}

	base := e.cfg.MessageXPMin
	if span := e.cfg.MessageXPMax - e.cfg.MessageXPMin; span > 0 {
		base += e.randN(span + 1)
	}
	granted, _ := e.Grant(ctx, author, base, metrics.SourceMessage)
	return granted
}

// Grant applies base scaled by the member's multiplier. A zero amount is a
// no-op. Store failures drop the grant.
func (e *Engine) Grant(ctx context.Context, member interfaces.Member, base int64, source string) (int64, error) {
	amount := leveling.Scale(base, e.deps.Multipliers.For(member.RoleIDs()))
	if amount == 0 {
		return 0, nil
	}

	p, err := e.deps.Store.AddXP(ctx, member.GuildID(), member.UserID(), amount)
	if err != nil {
		e.deps.Metrics.GrantDropped(source)
		e.logger.Error("dropping grant",
			"source", source,
			"guild", member.GuildID(),
			"user", member.UserID(),
			"amount", amount,
			dexlog.Err(err))
		return 0, err
	}
	e.deps.Metrics.XPGranted(source, amount)

	if from := p.PreviousLevel(); p.Level > from && e.deps.LevelUps != nil {
		e.deps.LevelUps.LevelUp(ctx, member, from, p.Level)
	}
	return amount, nil
}

// Qualifying filters a channel down to members eligible for voice XP.
func (e *Engine) Qualifying(ch interfaces.VoiceChannel) []interfaces.Member {
	var out []interfaces.Member
	for _, vm := range ch.Members {
		if vm.Member == nil || vm.Bot() || vm.AFK || vm.SelfMute || vm.SelfDeaf {
			continue
		}
		out = append(out, vm.Member)
	}
	if len(out) < e.cfg.VoiceMinMembers {
		return nil
	}
	return out
}

// VoiceTick grants voice XP across channels and waits for every grant to
// finish. It returns the number of members granted.
func (e *Engine) VoiceTick(ctx context.Context, channels []interfaces.VoiceChannel) int {
	var wg sync.WaitGroup
	count := 0
	for _, ch := range channels {
		for _, m := range e.Qualifying(ch) {
			count++
			wg.Add(1)
			job := func(ctx context.Context) {
				defer wg.Done()
				_, _ = e.Grant(ctx, m, e.cfg.VoiceXP, metrics.SourceVoice)
			}
			if e.deps.Pool == nil {
				job(ctx)
				continue
			}
			if err := e.deps.Pool.Submit(ctx, job); err != nil {
				wg.Done()
				e.deps.Metrics.GrantDropped(metrics.SourceVoice)
				e.logger.Warn("voice grant not queued", "guild", m.GuildID(), "user", m.UserID(), dexlog.Err(err))
			}
		}
	}
	wg.Wait()
	return count
}

// RunVoiceLoop ticks every VoiceInterval until ctx is done.
func (e *Engine) RunVoiceLoop(ctx context.Context, source interfaces.VoiceSource) {
	ticker := time.NewTicker(e.cfg.VoiceInterval)
	defer ticker.Stop()
	e.logger.Info("voice accrual started", "interval", e.cfg.VoiceInterval)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("voice accrual stopped")
			return
		case <-ticker.C:
			e.tick(ctx, source)
		}
	}
}

func (e *Engine) tick(ctx context.Context, source interfaces.VoiceSource) {
	start := time.Now()
	channels, err := source.VoiceChannels(ctx)
	if err != nil {
		e.logger.Warn("could not snapshot voice channels", dexlog.Err(err))
		return
	}
	n := e.VoiceTick(ctx, channels)
	e.deps.Metrics.VoiceTick(time.Since(start).Seconds(), n)
	e.logger.Debug("voice tick", "channels", len(channels), "granted", n)
}
