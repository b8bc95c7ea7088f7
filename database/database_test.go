package database

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/EasterCompany/dex-leveling-service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestOpen_SQLiteMigrates(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	db, err := Open(config.StoreConfig{
		Backend:  config.BackendSQLite,
		Database: config.DatabaseConfig{Path: ":memory:"},
	}, logger, &widget{})
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, db.Create(&widget{Name: "gear"}).Error)
	var got widget
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, "gear", got.Name)
}

func TestOpen_RejectsRedisBackend(t *testing.T) {
	_, err := Open(config.StoreConfig{Backend: config.BackendRedis}, slog.Default())
	require.Error(t, err)
}

func TestGormLogger_ReportsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	db, err := Open(config.StoreConfig{
		Backend:  config.BackendSQLite,
		Database: config.DatabaseConfig{Path: ":memory:"},
	}, logger)
	require.NoError(t, err)
	defer Close(db)

	err = db.Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "sql failed")
	assert.Contains(t, buf.String(), "logger=gorm")
}
