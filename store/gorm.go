package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EasterCompany/dex-leveling-service/database"
	"github.com/EasterCompany/dex-leveling-service/leveling"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRecord is the relational row for one member in one guild.
type ProgressRecord struct {
	GuildID   string `gorm:"primaryKey;size:32"`
	UserID    string `gorm:"primaryKey;size:32;index"`
	XP        int64  `gorm:"not null;index"`
	Level     int64  `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProgressRecord) TableName() string { return "progress" }

// GuildSettings is the per-guild settings row.
type GuildSettings struct {
	GuildID          string  `gorm:"primaryKey;size:32"`
	LevelUpChannelID *string `gorm:"size:32"`
	UpdatedAt        time.Time
}

func (GuildSettings) TableName() string { return "guild_settings" }

// Models lists the tables migrated for the gorm backend.
func Models() []any {
	return []any{&ProgressRecord{}, &GuildSettings{}}
}

// GormStore implements Store on sqlite or postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (r ProgressRecord) progress() Progress {
	return Progress{GuildID: r.GuildID, UserID: r.UserID, XP: r.XP, Level: r.Level}
}

func ensureRecord(tx *gorm.DB, guildID, userID string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ProgressRecord{GuildID: guildID, UserID: userID}).Error
}

func (s *GormStore) Get(ctx context.Context, guildID, userID string) (Progress, error) {
	db := s.db.WithContext(ctx)
	if err := ensureRecord(db, guildID, userID); err != nil {
		return Progress{}, fmt.Errorf("failed to create progress for %s/%s: %w", guildID, userID, err)
	}
	var rec ProgressRecord
	if err := db.Where("guild_id = ? AND user_id = ?", guildID, userID).Take(&rec).Error; err != nil {
		return Progress{}, fmt.Errorf("failed to get progress for %s/%s: %w", guildID, userID, err)
	}
	return rec.progress(), nil
}

func (s *GormStore) Set(ctx context.Context, p Progress) error {
	rec := ProgressRecord{GuildID: p.GuildID, UserID: p.UserID, XP: p.XP, Level: p.Level}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"xp", "level", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to set progress for %s/%s: %w", p.GuildID, p.UserID, err)
	}
	return nil
}

func (s *GormStore) AddXP(ctx context.Context, guildID, userID string, delta int64) (Progress, error) {
	delta = clampDelta(delta)
	var out Progress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRecord(tx, guildID, userID); err != nil {
			return err
		}
		var rec ProgressRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("guild_id = ? AND user_id = ?", guildID, userID).
			Take(&rec).Error
		if err != nil {
			return err
		}

		prev := rec.XP
		rec.XP = leveling.ClampXP(leveling.ClampXP(prev) + delta)
		rec.Level = leveling.LevelForXP(rec.XP)
		err = tx.Model(&ProgressRecord{}).
			Where("guild_id = ? AND user_id = ?", guildID, userID).
			Updates(map[string]any{"xp": rec.XP, "level": rec.Level}).Error
		if err != nil {
			return err
		}
		out = rec.progress()
		out.Gained = rec.XP - prev
		return nil
	})
	if err != nil {
		return Progress{}, fmt.Errorf("failed to add xp for %s/%s: %w", guildID, userID, err)
	}
	return out, nil
}

func (s *GormStore) Rank(ctx context.Context, guildID, userID string) (int64, error) {
	p, err := s.Get(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	var above int64
	err = s.db.WithContext(ctx).Model(&ProgressRecord{}).
		Where("guild_id = ? AND xp > ?", guildID, p.XP).
		Count(&above).Error
	if err != nil {
		return 0, fmt.Errorf("failed to rank %s/%s: %w", guildID, userID, err)
	}
	return above + 1, nil
}

func (s *GormStore) Top(ctx context.Context, guildID string, page, pageSize int) ([]Progress, error) {
	off, size := offset(page, pageSize)
	var recs []ProgressRecord
	err := s.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("xp DESC, created_at ASC, user_id ASC").
		Offset(off).Limit(size).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard for %s: %w", guildID, err)
	}
	out := make([]Progress, len(recs))
	for i, r := range recs {
		out[i] = r.progress()
	}
	return out, nil
}

func (s *GormStore) Count(ctx context.Context, guildID string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&ProgressRecord{}).Where("guild_id = ?", guildID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count members of %s: %w", guildID, err)
	}
	return n, nil
}

func (s *GormStore) UserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&ProgressRecord{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return ids, nil
}

func (s *GormStore) DeleteUsers(ctx context.Context, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Delete(&ProgressRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete users: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) LevelUpChannel(ctx context.Context, guildID string) (string, error) {
	var gs GuildSettings
	err := s.db.WithContext(ctx).Where("guild_id = ?", guildID).Take(&gs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read level-up channel for %s: %w", guildID, err)
	}
	if gs.LevelUpChannelID == nil {
		return "", nil
	}
	return *gs.LevelUpChannelID, nil
}

func (s *GormStore) SetLevelUpChannel(ctx context.Context, guildID, channelID string) error {
	gs := GuildSettings{GuildID: guildID}
	if channelID != "" {
		gs.LevelUpChannelID = &channelID
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"level_up_channel_id", "updated_at"}),
	}).Create(&gs).Error
	if err != nil {
		return fmt.Errorf("failed to store level-up channel for %s: %w", guildID, err)
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	return database.Close(s.db)
}
