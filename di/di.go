// Package di provides a dependency injection container for the application.
package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/EasterCompany/dex-leveling-service/accrual"
	"github.com/EasterCompany/dex-leveling-service/admin"
	"github.com/EasterCompany/dex-leveling-service/cleanup"
	"github.com/EasterCompany/dex-leveling-service/commands"
	"github.com/EasterCompany/dex-leveling-service/config"
	"github.com/EasterCompany/dex-leveling-service/cooldown"
	"github.com/EasterCompany/dex-leveling-service/events"
	"github.com/EasterCompany/dex-leveling-service/guild"
	"github.com/EasterCompany/dex-leveling-service/health"
	"github.com/EasterCompany/dex-leveling-service/leaderboard"
	"github.com/EasterCompany/dex-leveling-service/leveling"
	"github.com/EasterCompany/dex-leveling-service/levelup"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/metrics"
	"github.com/EasterCompany/dex-leveling-service/services"
	"github.com/EasterCompany/dex-leveling-service/session"
	"github.com/EasterCompany/dex-leveling-service/store"
	"github.com/EasterCompany/dex-leveling-service/worker"
	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const expireEditTimeout = 5 * time.Second

// Container holds all the dependencies for the application.
type Container struct {
	Config   *config.AllConfig
	Logger   *slog.Logger
	Mirror   *dexlog.DiscordMirror
	Session  *discordgo.Session
	Store    store.Store
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Tiers    leveling.TierRoleMap

	Directory *session.Directory
	Responder *session.Responder
	Cooldowns *cooldown.Tracker
	Pool      *worker.WorkerPool
	Guilds    *guild.Resolver
	LevelUps  *levelup.Handler
	Accrual   *accrual.Engine
	Admin     *admin.Service
	Boards    *leaderboard.Manager
	Commands  *commands.Handler
	Health    *health.Checker
	Events    *events.Handler
	Pruner    *cleanup.Pruner
	Status    *services.StatusServer
}

// NewContainer creates a new dependency injection container. ctx bounds the
// store connection and every gateway callback.
func NewContainer(ctx context.Context, cfg *config.AllConfig, logger *slog.Logger, mirror *dexlog.DiscordMirror) (*Container, error) {
	tiers, err := cfg.Leveling.Tiers()
	if err != nil {
		return nil, fmt.Errorf("invalid tier roles: %w", err)
	}

	s, err := session.NewSession(cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Mirror:   mirror,
		Session:  s,
		Store:    st,
		Registry: registry,
		Metrics:  m,
		Tiers:    tiers,
	}

	c.Directory = session.FromSession(s)
	c.Responder = session.NewResponder(s)
	c.Cooldowns = cooldown.New(cfg.Leveling.MessageCooldown)
	c.Pool = worker.New(cfg.Workers.VoiceWorkers, cfg.Workers.QueueSize, logger)
	c.Guilds = guild.NewResolver(st, c.Directory, logger)
	c.LevelUps = levelup.New(tiers, c.Guilds, session.NewAnnouncer(s, c.Directory), m, logger)

	c.Accrual = accrual.New(accrual.Config{
		MessageXPMin:        cfg.Leveling.MessageXPMin,
		MessageXPMax:        cfg.Leveling.MessageXPMax,
		VoiceXP:             cfg.Leveling.VoiceXP,
		VoiceInterval:       cfg.Leveling.VoiceInterval,
		VoiceMinMembers:     cfg.Leveling.VoiceMinMembers,
		BlacklistedChannels: cfg.Leveling.BlacklistedChannels,
	}, accrual.Deps{
		Store:       st,
		Cooldowns:   c.Cooldowns,
		Multipliers: cfg.Leveling.Multipliers(),
		LevelUps:    c.LevelUps,
		Pool:        c.Pool,
		Metrics:     m,
		Logger:      logger,
	})

	c.Admin = admin.New(st, c.LevelUps, c.Guilds, m, logger)
	c.Boards = leaderboard.NewManager(st, cfg.Leaderboard.PageSize, cfg.Leaderboard.IdleTimeout, c.disableExpired, m, logger)
	c.Commands = commands.NewHandler(
		cfg.Discord.CommandPrefix,
		cfg.Discord.AdminWhitelist,
		c.Responder,
		c.Directory,
		st,
		c.Admin,
		c.Boards,
		logger,
	)

	c.Health = health.NewChecker(st)
	c.Events = events.NewHandler(ctx, c.Accrual, c.Commands, c.Directory, c.Health, logger)
	c.Pruner = cleanup.NewPruner(st, c.Directory, m, logger)
	if cfg.Status.Addr != "" {
		c.Status = services.NewStatusServer(cfg.Status.Addr, c.Health, c.Directory, registry, logger)
	}
	return c, nil
}

// disableExpired greys out the buttons of a leaderboard that timed out.
func (c *Container) disableExpired(p *leaderboard.Pager) {
	channelID, messageID := p.Message()
	if messageID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), expireEditTimeout)
	defer cancel()
	if err := c.Responder.EditComponents(ctx, channelID, messageID, leaderboard.DisabledComponents(p.ID)); err != nil {
		c.Logger.Warn("failed to disable expired leaderboard", "pager", p.ID, dexlog.Err(err))
	}
}

// Close releases the store. The session is closed by the app.
func (c *Container) Close() error {
	return c.Store.Close()
}
