// Package app runs the leveling service: it connects to Discord, starts the
// background loops and tears everything down when the context ends.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/EasterCompany/dex-leveling-service/constants"
	"github.com/EasterCompany/dex-leveling-service/di"
	"github.com/EasterCompany/dex-leveling-service/health"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/reporting"
	"github.com/EasterCompany/dex-leveling-service/system"
	"github.com/EasterCompany/dex-leveling-service/utils"
	"golang.org/x/sync/errgroup"
)

const reconnectDelay = 15 * time.Second

type App struct {
	c      *di.Container
	logger *slog.Logger
}

func New(c *di.Container) *App {
	return &App{c: c, logger: dexlog.Named(c.Logger, "app")}
}

// Run blocks until ctx is cancelled or a background loop fails.
func (a *App) Run(ctx context.Context) error {
	c := a.c
	c.Events.Register(c.Session)

	if err := a.connect(ctx); err != nil {
		return err
	}
	defer a.shutdown()

	c.Mirror.Attach(c.Session, c.Config.Discord.LogChannelID)
	boot := reporting.NewBootMessage(c.Session, c.Config.Discord.LogChannelID, c.Logger)
	boot.PostInitialMessage()
	boot.Step(constants.BootStepDiscord)

	storeStatus := health.StoreStatus(ctx, c.Store)
	if storeStatus == health.StatusOK {
		boot.Step(constants.BootStepStore)
	} else {
		a.logger.Error("progress store is not answering", "status", storeStatus)
	}

	c.Pool.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.Accrual.RunVoiceLoop(gctx, c.Directory)
		return nil
	})
	g.Go(func() error {
		c.Cooldowns.Run(gctx, c.Config.Leveling.CooldownSweepInterval, func(removed, remaining int) {
			c.Metrics.CooldownEntries(remaining)
			a.logger.Debug("cooldown sweep", "removed", removed, "remaining", remaining)
		})
		return nil
	})
	if c.Config.Prune.Enabled {
		g.Go(func() error {
			c.Pruner.Run(gctx, c.Config.Prune.Interval)
			return nil
		})
	}
	boot.Step(constants.BootStepLoops)

	if c.Status != nil {
		g.Go(func() error {
			return c.Status.Run(gctx)
		})
		boot.Step(constants.BootStepStatus)
	}

	snapshot, err := system.Sample()
	if err != nil {
		a.logger.Warn("could not sample system usage", dexlog.Err(err))
	}
	discordStatus, _ := c.Health.Status()
	boot.Finish(reporting.FinalStatus(reporting.Status{
		Discord:      discordStatus,
		Store:        storeStatus,
		Backend:      c.Config.Store.Backend,
		Guilds:       c.Directory.GuildCount(),
		Tiers:        c.Tiers.Len(),
		StatusAddr:   c.Config.Status.Addr,
		Version:      utils.GetVersion(),
		PruneEnabled: c.Config.Prune.Enabled,
	}, snapshot))

	a.logger.Info("service is running", "version", utils.GetVersion().String(), "backend", c.Config.Store.Backend)
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// connect opens the gateway, retrying until it succeeds or ctx ends.
func (a *App) connect(ctx context.Context) error {
	for {
		err := a.c.Session.Open()
		if err == nil {
			return nil
		}
		a.c.Health.Set(health.StatusError, err.Error())
		a.logger.Error("error opening connection to Discord, retrying", "delay", reconnectDelay, dexlog.Err(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (a *App) shutdown() {
	c := a.c
	a.logger.Info("shutting down")
	c.Boards.Shutdown()
	c.Pool.Stop()
	c.Mirror.Detach()
	if err := c.Session.Close(); err != nil {
		a.logger.Warn("error closing Discord session", dexlog.Err(err))
	}
}
