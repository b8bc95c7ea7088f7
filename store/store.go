// Package store persists per-guild member progress and guild level settings.
//
// Two backends implement Store: a Redis backend keyed on sorted sets, and a
// gorm backend for sqlite and postgres. Both apply XP deltas atomically at
// the storage layer and recompute the level from the post-increment value,
// so concurrent grants to the same member never lose an update.
package store

import (
	"context"
	"errors"

	"github.com/EasterCompany/dex-leveling-service/leveling"
)

var ErrUnknownBackend = errors.New("unknown store backend")

// Progress is one member's standing in one guild.
type Progress struct {
	GuildID string
	UserID  string
	XP      int64
	Level   int64
	// Gained is the XP AddXP actually applied after clamping. Reads leave it 0.
	Gained int64
}

// PreviousLevel is the level held before the last AddXP reached p.
func (p Progress) PreviousLevel() int64 {
	if p.Gained <= 0 {
		return p.Level
	}
	return leveling.LevelForXP(p.XP - p.Gained)
}

// ProgressStore holds ProgressRecords.
type ProgressStore interface {
	// Get returns the member's progress, creating a zeroed record if absent.
	Get(ctx context.Context, guildID, userID string) (Progress, error)
	// Set overwrites xp and level unconditionally.
	Set(ctx context.Context, p Progress) error
	// AddXP atomically applies delta, clamping to [0, MaxXP], and stores the
	// recomputed level. The returned progress is the post-increment state
	// with Gained set to the XP that survived clamping.
	AddXP(ctx context.Context, guildID, userID string, delta int64) (Progress, error)
	// Rank is 1 + the number of members in the guild with strictly more XP.
	Rank(ctx context.Context, guildID, userID string) (int64, error)
	// Top returns the 1-indexed page of the guild ordered by XP descending.
	Top(ctx context.Context, guildID string, page, pageSize int) ([]Progress, error)
	Count(ctx context.Context, guildID string) (int64, error)
	// UserIDs lists every user with a record in any guild.
	UserIDs(ctx context.Context) ([]string, error)
	// DeleteUsers removes every record of the given users in all guilds.
	DeleteUsers(ctx context.Context, userIDs []string) (int64, error)
}

// SettingsStore holds per-guild level settings.
type SettingsStore interface {
	// LevelUpChannel returns the configured channel, or "" when unset.
	LevelUpChannel(ctx context.Context, guildID string) (string, error)
	// SetLevelUpChannel stores channelID; "" clears the setting.
	SetLevelUpChannel(ctx context.Context, guildID, channelID string) error
}

// Store is a complete persistence backend.
type Store interface {
	ProgressStore
	SettingsStore
	Ping(ctx context.Context) error
	Close() error
}

// clampDelta keeps xp + delta inside int64 for any stored xp in [0, MaxXP].
func clampDelta(delta int64) int64 {
	return max(-leveling.MaxXP, min(delta, leveling.MaxXP))
}

func offset(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	return (page - 1) * pageSize, pageSize
}
