package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "memory", cfg.Auth.Mode)
	assert.Equal(t, time.Second, cfg.Game.BotPlayInterval.Std())
	assert.Equal(t, 10*time.Second, cfg.Game.MaxBotPlayInterval.Std())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
log_level: debug
auth:
  mode: sqlite
  db_path: /tmp/auth.db
  jwt_secret: sekrit
  session_ttl: 24h
save:
  mode: sqlite
  db_path: /tmp/saves.db
game:
  seed: 42
  bot_play_interval: 500ms
  max_bot_play_interval: 5s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.Auth.Mode)
	assert.Equal(t, "sekrit", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL.Std())
	assert.Equal(t, int64(42), cfg.Game.Seed)
	assert.Equal(t, 500*time.Millisecond, cfg.Game.BotPlayInterval.Std())
	assert.Equal(t, 5*time.Second, cfg.Game.MaxBotPlayInterval.Std())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o644))

	t.Setenv("LUDI_ADDR", ":7070")
	t.Setenv("BOT_PLAY_INTERVAL", "2s")
	t.Setenv("GAME_SEED", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.Game.BotPlayInterval.Std())
	assert.Equal(t, int64(7), cfg.Game.Seed)
}

func TestLoad_BotIntervalClampedToMax(t *testing.T) {
	t.Setenv("BOT_PLAY_INTERVAL", "1m")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, cfg.Game.MaxBotPlayInterval, cfg.Game.BotPlayInterval)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	path2 := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path2, []byte("game:\n  bot_play_interval: soon\n"), 0o644))
	_, err = Load(path2)
	assert.Error(t, err, "bad duration strings are a parse error")
}
