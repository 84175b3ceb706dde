package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicer/internal/config"
	"invoicer/internal/logger"
	"invoicer/internal/models"
)

func init() {
	logger.Init("test")
}

func TestNewManager_SQLite(t *testing.T) {
	cfg := config.Defaults()
	cfg.DBDriver = "sqlite"
	cfg.DBPath = filepath.Join(t.TempDir(), "invoicer.db")

	m, err := NewManager(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Migrate())
	require.NoError(t, m.Ping(context.Background()))

	for _, model := range models.All() {
		assert.True(t, m.DB().Migrator().HasTable(model), "missing table for %T", model)
	}

	// Migrating twice is a no-op.
	require.NoError(t, m.Migrate())
}

func TestNewManager_UnknownDriver(t *testing.T) {
	cfg := config.Defaults()
	cfg.DBDriver = "oracle"

	_, err := NewManager(cfg)
	assert.ErrorContains(t, err, `unsupported database driver "oracle"`)
}
