package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/model"
)

func TestInitMigrates(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "hostel.db"),
		LogLevel: "silent",
	}

	gormDB, err := Init(cfg, zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	for _, m := range Models() {
		assert.True(t, gormDB.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, gormDB.Migrator().HasIndex(&model.RoomLink{}, "idx_room_links_open_occupant"))

	// Migrations are idempotent, so an explicit second run is harmless but unneeded.
	require.NoError(t, Migrate(gormDB))
}

func TestGormLogLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want logger.LogLevel
	}{
		{"silent", logger.Silent},
		{"error", logger.Error},
		{"warn", logger.Warn},
		{"info", logger.Info},
		{"", logger.Warn},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, gormLogLevel(tc.in), tc.in)
	}
}
