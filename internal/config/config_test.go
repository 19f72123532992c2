package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 15m
schedule:
  timezone: Asia/Kolkata
  eventsPath: config/events.yaml
game:
  quickRounds: 10
  correctDelay: 1s
  wrongDelay: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 10, cfg.Game.QuickRounds)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "game:\n  quickRounds: -3\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, 10*time.Minute, TTLDuration("", 10*time.Minute))
	assert.Equal(t, 30*time.Second, TTLDuration("30s", 10*time.Minute))
	assert.Equal(t, 10*time.Minute, TTLDuration("soon", 10*time.Minute))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
