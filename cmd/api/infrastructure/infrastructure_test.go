package infrastructure

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"messaging-service/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.DB.Path = filepath.Join(t.TempDir(), "app.db")
	return cfg
}

func TestNewDatabase_SQLiteMigrates(t *testing.T) {
	cfg := testConfig(t)
	db, err := NewDatabase(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDatabase(db) })

	for _, table := range []string{"users", "conversations", "conversation_participants", "messages", "user_data"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestOpenDatabase_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.Driver = "oracle"
	_, err := OpenDatabase(cfg, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "app.db?_pragma=busy_timeout(5000)", sqliteDSN("app.db"))
	assert.Equal(t, "file:app.db?mode=rwc&_pragma=busy_timeout(5000)", sqliteDSN("file:app.db?mode=rwc"))
}

func TestNewRedisClient(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Enabled = false
	rdb, err := NewRedisClient(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, rdb)

	mr := miniredis.RunT(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = mr.Port()
	rdb, err = NewRedisClient(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	assert.True(t, rdb.Healthy(t.Context()))
}
