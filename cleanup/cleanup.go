// Package cleanup prunes progress records of users the bot can no longer see.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/EasterCompany/dex-leveling-service/interfaces"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/metrics"
)

// Result holds the outcome of a cleanup task.
type Result struct {
	Name        string
	Count       int64
	Description string
	Skipped     bool
}

// Records is the part of the progress store the sweep touches.
type Records interface {
	UserIDs(ctx context.Context) ([]string, error)
	DeleteUsers(ctx context.Context, userIDs []string) (int64, error)
}

// Pruner deletes every record of users who share no guild with the bot.
type Pruner struct {
	records Records
	reach   interfaces.Reachability
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewPruner(records Records, reach interfaces.Reachability, m *metrics.Metrics, logger *slog.Logger) *Pruner {
	return &Pruner{
		records: records,
		reach:   reach,
		metrics: m,
		logger:  dexlog.Named(logger, "cleanup"),
	}
}

// Prune runs one sweep. With zero guilds visible the platform is not ready
// and nothing is deleted.
func (p *Pruner) Prune(ctx context.Context) (Result, error) {
	res := Result{Name: "PruneDepartedUsers"}
	guilds := p.reach.GuildCount()
	if guilds == 0 {
		res.Skipped = true
		res.Description = "no guilds visible"
		return res, nil
	}

	reachable, err := p.reach.ReachableUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list reachable users: %w", err)
	}
	stored, err := p.records.UserIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list stored users: %w", err)
	}

	var departed []string
	for _, id := range stored {
		if _, ok := reachable[id]; !ok {
			departed = append(departed, id)
		}
	}
	res.Description = fmt.Sprintf("%d stored, %d reachable in %d guilds", len(stored), len(reachable), guilds)
	if len(departed) == 0 {
		return res, nil
	}

	deleted, err := p.records.DeleteUsers(ctx, departed)
	if err != nil {
		return res, fmt.Errorf("failed to delete %d departed users: %w", len(departed), err)
	}
	res.Count = deleted
	p.metrics.Pruned(deleted)
	return res, nil
}

// Run prunes every interval until ctx is done.
func (p *Pruner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Pruner) runOnce(ctx context.Context) {
	res, err := p.Prune(ctx)
	switch {
	case err != nil:
		p.logger.Error("prune sweep failed", dexlog.Err(err))
	case res.Skipped:
		p.logger.Warn("prune sweep skipped", "reason", res.Description)
	default:
		p.logger.Info("prune sweep complete", "deleted", res.Count, "detail", res.Description)
	}
}
