// Package admin implements the moderator adjustments to member progress and
// guild level settings.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EasterCompany/dex-leveling-service/interfaces"
	"github.com/EasterCompany/dex-leveling-service/leveling"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/metrics"
	"github.com/EasterCompany/dex-leveling-service/store"
)

var (
	ErrInvalidAmount  = errors.New("amount must be a positive number")
	ErrInvalidLevel   = errors.New("level must be 0 or greater")
	ErrBot            = errors.New("bots don't have levels")
	ErrAmountTooLarge = fmt.Errorf("amount must be at most %d", leveling.MaxXP)
	ErrLevelTooHigh   = fmt.Errorf("level must be at most %d", leveling.MaxLevel)
)

// Roles is the level-transition side the service drives.
type Roles interface {
	LevelUp(ctx context.Context, member interfaces.Member, from, to int64)
	Reconcile(ctx context.Context, member interfaces.Member, level int64) (leveling.Diff, error)
}

// Channels configures the announcement channel.
type Channels interface {
	Configure(ctx context.Context, guildID, channelID string) error
	Disable(ctx context.Context, guildID string) error
}

type Service struct {
	store    store.ProgressStore
	roles    Roles
	channels Channels
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(st store.ProgressStore, roles Roles, channels Channels, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		roles:    roles,
		channels: channels,
		metrics:  m,
		logger:   dexlog.Named(logger, "admin"),
	}
}

// AddXP grants amount without multipliers. Crossing a level runs the full
// level-up flow.
func (s *Service) AddXP(ctx context.Context, member interfaces.Member, amount int64) (store.Progress, error) {
	if amount <= 0 {
		return store.Progress{}, ErrInvalidAmount
	}
	if amount > leveling.MaxXP {
		return store.Progress{}, ErrAmountTooLarge
	}
	if member.Bot() {
		return store.Progress{}, ErrBot
	}
	p, err := s.store.AddXP(ctx, member.GuildID(), member.UserID(), amount)
	if err != nil {
		return store.Progress{}, err
	}
	s.metrics.XPGranted(metrics.SourceAdmin, amount)
	if from := p.PreviousLevel(); p.Level > from {
		s.roles.LevelUp(ctx, member, from, p.Level)
	}
	return p, nil
}

// RemoveXP takes amount away, never below zero, and strips tiers the member
// no longer qualifies for.
func (s *Service) RemoveXP(ctx context.Context, member interfaces.Member, amount int64) (store.Progress, error) {
	if amount <= 0 {
		return store.Progress{}, ErrInvalidAmount
	}
	if member.Bot() {
		return store.Progress{}, ErrBot
	}
	p, err := s.store.AddXP(ctx, member.GuildID(), member.UserID(), -amount)
	if err != nil {
		return store.Progress{}, err
	}
	s.reconcile(ctx, member, p.Level)
	return p, nil
}

// SetLevel places the member at the start of level, which may not exceed
// leveling.MaxLevel.
func (s *Service) SetLevel(ctx context.Context, member interfaces.Member, level int64) (store.Progress, error) {
	if level < 0 {
		return store.Progress{}, ErrInvalidLevel
	}
	if level > leveling.MaxLevel {
		return store.Progress{}, ErrLevelTooHigh
	}
	if member.Bot() {
		return store.Progress{}, ErrBot
	}
	return s.overwrite(ctx, member, leveling.XPForLevel(level), level)
}

// Reset zeroes the member's progress and removes every tier role. The
// record itself is kept.
func (s *Service) Reset(ctx context.Context, member interfaces.Member) (store.Progress, error) {
	if member.Bot() {
		return store.Progress{}, ErrBot
	}
	return s.overwrite(ctx, member, 0, 0)
}

func (s *Service) overwrite(ctx context.Context, member interfaces.Member, xp, level int64) (store.Progress, error) {
	p := store.Progress{GuildID: member.GuildID(), UserID: member.UserID(), XP: xp, Level: level}
	if err := s.store.Set(ctx, p); err != nil {
		return store.Progress{}, err
	}
	s.reconcile(ctx, member, level)
	return p, nil
}

func (s *Service) reconcile(ctx context.Context, member interfaces.Member, level int64) {
	if _, err := s.roles.Reconcile(ctx, member, level); err != nil {
		s.logger.Warn("tier roles not fully reconciled",
			"guild", member.GuildID(),
			"user", member.UserID(),
			"level", level,
			dexlog.Err(err))
	}
}

// SetChannel directs level-up announcements to channelID.
func (s *Service) SetChannel(ctx context.Context, guildID, channelID string) error {
	return s.channels.Configure(ctx, guildID, channelID)
}

// DisableChannel reverts announcements to the default channel selection.
func (s *Service) DisableChannel(ctx context.Context, guildID string) error {
	return s.channels.Disable(ctx, guildID)
}
