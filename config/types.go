package config

import (
	"time"

	"github.com/EasterCompany/dex-leveling-service/leveling"
)

// AllConfig is the full service configuration, decoded from leveling.json
// and DEX_LEVELING_* environment overrides.
type AllConfig struct {
	Discord     DiscordConfig     `mapstructure:"discord" json:"discord"`
	Store       StoreConfig       `mapstructure:"store" json:"store"`
	Leveling    LevelingConfig    `mapstructure:"leveling" json:"leveling"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard" json:"leaderboard"`
	Prune       PruneConfig       `mapstructure:"prune" json:"prune"`
	Status      StatusConfig      `mapstructure:"status" json:"status"`
	Workers     WorkerConfig      `mapstructure:"workers" json:"workers"`
	LogLevel    string            `mapstructure:"log_level" json:"log_level"`
}

// DiscordConfig holds Discord-specific settings
type DiscordConfig struct {
	Token          string   `mapstructure:"token" json:"token"`
	LogChannelID   string   `mapstructure:"log_channel_id" json:"log_channel_id"`
	CommandPrefix  string   `mapstructure:"command_prefix" json:"command_prefix"`
	AdminWhitelist []string `mapstructure:"admin_whitelist" json:"admin_whitelist"`
}

// StoreConfig selects and configures the progress store backend.
type StoreConfig struct {
	// Backend is one of "redis", "sqlite" or "postgres".
	Backend  string         `mapstructure:"backend" json:"backend"`
	Redis    RedisConfig    `mapstructure:"redis" json:"redis"`
	Database DatabaseConfig `mapstructure:"database" json:"database"`
}

// RedisConfig holds connection details for a redis instance
type RedisConfig struct {
	Addr      string `mapstructure:"addr" json:"addr"`
	Username  string `mapstructure:"username" json:"username"`
	Password  string `mapstructure:"password" json:"password"`
	DB        int    `mapstructure:"db" json:"db"`
	KeyPrefix string `mapstructure:"key_prefix" json:"key_prefix"`
}

// DatabaseConfig configures the gorm-backed store.
type DatabaseConfig struct {
	// Path is the SQLite file; DSN is the postgres connection string.
	Path          string        `mapstructure:"path" json:"path"`
	DSN           string        `mapstructure:"dsn" json:"dsn"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold" json:"slow_threshold"`
}

// TierRoleConfig binds a role to a level threshold.
type TierRoleConfig struct {
	Level  int64  `mapstructure:"level" json:"level"`
	RoleID string `mapstructure:"role_id" json:"role_id"`
}

// LevelingConfig tunes accrual.
type LevelingConfig struct {
	MessageCooldown       time.Duration      `mapstructure:"message_cooldown" json:"message_cooldown"`
	MessageXPMin          int64              `mapstructure:"message_xp_min" json:"message_xp_min"`
	MessageXPMax          int64              `mapstructure:"message_xp_max" json:"message_xp_max"`
	VoiceXP               int64              `mapstructure:"voice_xp" json:"voice_xp"`
	VoiceInterval         time.Duration      `mapstructure:"voice_interval" json:"voice_interval"`
	VoiceMinMembers       int                `mapstructure:"voice_min_members" json:"voice_min_members"`
	BlacklistedChannels   []string           `mapstructure:"blacklisted_channels" json:"blacklisted_channels"`
	BoosterRoles          map[string]float64 `mapstructure:"booster_roles" json:"booster_roles"`
	TierRoles             []TierRoleConfig   `mapstructure:"tier_roles" json:"tier_roles"`
	CooldownSweepInterval time.Duration      `mapstructure:"cooldown_sweep_interval" json:"cooldown_sweep_interval"`
}

// Tiers builds the validated tier table.
func (c LevelingConfig) Tiers() (leveling.TierRoleMap, error) {
	tiers := make([]leveling.Tier, 0, len(c.TierRoles))
	for _, t := range c.TierRoles {
		tiers = append(tiers, leveling.Tier{Level: t.Level, RoleID: t.RoleID})
	}
	return leveling.NewTierRoleMap(tiers)
}

// Multipliers returns the booster table.
func (c LevelingConfig) Multipliers() leveling.Multipliers {
	m := make(leveling.Multipliers, len(c.BoosterRoles))
	for role, mult := range c.BoosterRoles {
		m[role] = mult
	}
	return m
}

type LeaderboardConfig struct {
	PageSize    int           `mapstructure:"page_size" json:"page_size"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`
}

type PruneConfig struct {
	Enabled  bool          `mapstructure:"enabled" json:"enabled"`
	Interval time.Duration `mapstructure:"interval" json:"interval"`
}

// StatusConfig configures the HTTP status server. An empty Addr disables it.
type StatusConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

type WorkerConfig struct {
	VoiceWorkers int `mapstructure:"voice_workers" json:"voice_workers"`
	QueueSize    int `mapstructure:"queue_size" json:"queue_size"`
}
