package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "DEX_LEVELING"
	defaultConfigFile = "leveling.json"

	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Re-assigned in tests.
var osUserHomeDir = os.UserHomeDir

// DefaultPath returns ~/Dexter/config/leveling.json.
func DefaultPath() (string, error) {
	home, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home directory: %w", err)
	}
	return filepath.Join(home, "Dexter", "config", defaultConfigFile), nil
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("discord.token", "")
	v.SetDefault("discord.log_channel_id", "")
	v.SetDefault("discord.command_prefix", "!")
	v.SetDefault("discord.admin_whitelist", []string{})

	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.username", "")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key_prefix", "dex-leveling:")
	v.SetDefault("store.database.path", "leveling.db")
	v.SetDefault("store.database.dsn", "")
	v.SetDefault("store.database.slow_threshold", 200*time.Millisecond)

	v.SetDefault("leveling.message_cooldown", 60*time.Second)
	v.SetDefault("leveling.message_xp_min", 15)
	v.SetDefault("leveling.message_xp_max", 25)
	v.SetDefault("leveling.voice_xp", 10)
	v.SetDefault("leveling.voice_interval", 60*time.Second)
	v.SetDefault("leveling.voice_min_members", 2)
	v.SetDefault("leveling.blacklisted_channels", []string{})
	v.SetDefault("leveling.cooldown_sweep_interval", 5*time.Minute)

	v.SetDefault("leaderboard.page_size", 10)
	v.SetDefault("leaderboard.idle_timeout", 180*time.Second)

	v.SetDefault("prune.enabled", true)
	v.SetDefault("prune.interval", 24*time.Hour)

	v.SetDefault("status.addr", "127.0.0.1:8210")

	v.SetDefault("workers.voice_workers", 4)
	v.SetDefault("workers.queue_size", 256)

	v.SetDefault("log_level", "info")
}

// Load reads path (or the default path when empty) into an AllConfig.
// A missing default file is not an error: defaults and environment apply.
func Load(v *viper.Viper, path string) (*AllConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not read config file %s: %w", path, err)
		}
	}

	cfg := &AllConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("could not decode config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem found in the configuration.
func (c *AllConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Discord.Token) == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}
	switch c.Store.Backend {
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}
	case BackendSQLite:
		if c.Store.Database.Path == "" {
			errs = append(errs, errors.New("store.database.path is required for the sqlite backend"))
		}
	case BackendPostgres:
		if c.Store.Database.DSN == "" {
			errs = append(errs, errors.New("store.database.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q must be one of redis, sqlite, postgres", c.Store.Backend))
	}

	l := c.Leveling
	if l.MessageXPMin < 0 || l.MessageXPMax < l.MessageXPMin {
		errs = append(errs, fmt.Errorf("leveling.message_xp range [%d, %d] is invalid", l.MessageXPMin, l.MessageXPMax))
	}
	if l.VoiceXP < 0 {
		errs = append(errs, errors.New("leveling.voice_xp must not be negative"))
	}
	if l.MessageCooldown <= 0 {
		errs = append(errs, errors.New("leveling.message_cooldown must be positive"))
	}
	if l.VoiceInterval <= 0 {
		errs = append(errs, errors.New("leveling.voice_interval must be positive"))
	}
	if l.VoiceMinMembers < 1 {
		errs = append(errs, errors.New("leveling.voice_min_members must be at least 1"))
	}
	if l.CooldownSweepInterval <= 0 {
		errs = append(errs, errors.New("leveling.cooldown_sweep_interval must be positive"))
	}
	for role, mult := range l.BoosterRoles {
		if mult < 0 {
			errs = append(errs, fmt.Errorf("leveling.booster_roles[%s] must not be negative", role))
		}
	}
	if _, err := l.Tiers(); err != nil {
		errs = append(errs, fmt.Errorf("leveling.tier_roles: %w", err))
	}

	if c.Leaderboard.PageSize <= 0 {
		errs = append(errs, errors.New("leaderboard.page_size must be positive"))
	}
	if c.Leaderboard.IdleTimeout <= 0 {
		errs = append(errs, errors.New("leaderboard.idle_timeout must be positive"))
	}
	if c.Prune.Enabled && c.Prune.Interval <= 0 {
		errs = append(errs, errors.New("prune.interval must be positive when pruning is enabled"))
	}
	if c.Workers.VoiceWorkers < 1 {
		errs = append(errs, errors.New("workers.voice_workers must be at least 1"))
	}
	return errors.Join(errs...)
}
