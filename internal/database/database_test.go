package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"feedsync/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint
	Name string
}

func TestOpen_SQLiteMemoryMigrates(t *testing.T) {
	db, err := Open(sqlite.Open(":memory:"), "warn", true, &widget{})
	require.NoError(t, err)

	require.NoError(t, db.Create(&widget{Name: "gear"}).Error)
	var got widget
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, "gear", got.Name)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestConnect_RejectsUnknownDriver(t *testing.T) {
	_, err := Connect(&config.Config{EmulatorDBDriver: "mysql"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestConnect_SQLiteFile(t *testing.T) {
	dsn := t.TempDir() + "/nested/emulator.db"
	db, err := Connect(&config.Config{EmulatorDBDriver: DriverSQLite, EmulatorDBDSN: dsn, LogLevel: "error"}, &widget{})
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&widget{}))
}

func TestCustomGormLogger_Trace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   logger.LogLevel
		elapsed time.Duration
		err     error
		want    string
	}{
		{name: "error is logged", level: logger.Warn, err: errors.New("boom"), want: "GORM query error"},
		{name: "record not found is ignored", level: logger.Warn, err: gorm.ErrRecordNotFound},
		{name: "slow query warns", level: logger.Warn, elapsed: time.Second, want: "GORM slow query"},
		{name: "info logs every query", level: logger.Info, want: "GORM query"},
		{name: "silent logs nothing", level: logger.Silent, err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, nil)), tt.level)

			l.Trace(context.Background(), time.Now().Add(-tt.elapsed), func() (string, int64) {
				return "SELECT 1", 1
			}, tt.err)

			if tt.want == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "SELECT 1")
		})
	}
}

func TestGormLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, logger.Info, gormLevel("debug"))
	assert.Equal(t, logger.Warn, gormLevel("info"))
	assert.Equal(t, logger.Error, gormLevel("error"))
}
