package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormLogger adapts gorm's logger.Interface to slog.
type GormLogger struct {
	logger        *slog.Logger
	slowThreshold time.Duration
}

func NewGormLogger(l *slog.Logger, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{logger: dexlog.Named(l, "gorm"), slowThreshold: slowThreshold}
}

// LogMode is a no-op; filtering happens in the slog handler.
func (g *GormLogger) LogMode(logger.LogLevel) logger.Interface { return g }

func (g *GormLogger) Info(ctx context.Context, s string, args ...any) {
	g.logger.InfoContext(ctx, fmt.Sprintf(s, args...))
}

func (g *GormLogger) Warn(ctx context.Context, s string, args ...any) {
	g.logger.WarnContext(ctx, fmt.Sprintf(s, args...))
}

func (g *GormLogger) Error(ctx context.Context, s string, args ...any) {
	g.logger.ErrorContext(ctx, fmt.Sprintf(s, args...))
}

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		g.logger.ErrorContext(ctx, "sql failed", "elapsed", elapsed, "rows", rows, "sql", sql, dexlog.Err(err))
	case g.slowThreshold > 0 && elapsed > g.slowThreshold:
		g.logger.WarnContext(ctx, "slow sql", "elapsed", elapsed, "threshold", g.slowThreshold, "rows", rows, "sql", sql)
	default:
		g.logger.DebugContext(ctx, "sql completed", "elapsed", elapsed, "rows", rows, "sql", sql)
	}
}
