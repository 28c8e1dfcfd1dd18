package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ailabhub/tres-guard/internal/consts"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"BOT_TOKEN", "TELEGRAM_BOT_TOKEN", "LOG_LEVEL", "REDIS_URL", "WORKERS", "RATE_LIMIT",
		"REQUEST_TIMEOUT", "ADMIN_CACHE_TTL", "HEALTH_ENABLED", "HEALTH_ADDR", "KEYWORDS", "CHART_TRIGGERS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadRequiresToken(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Token)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Health.Addr)
	assert.True(t, cfg.Health.Enabled)
	assert.Equal(t, consts.BannedKeywords, cfg.Keywords)
	assert.Equal(t, consts.ChartTriggers, cfg.ChartTriggers)
	assert.Equal(t, 30*time.Second, cfg.Janitor.Period)
	assert.Equal(t, 120*time.Second, cfg.Janitor.TTL)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram_bot_token: "from-file"
log_level: debug
workers: 0
request_timeout: 5s
admin_cache_ttl: 0s
health:
  addr: ":9090"
keywords: [airdrop, presale]
janitor:
  ttl: 60s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Token)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Duration(0), cfg.AdminCacheTTL)
	assert.Equal(t, ":9090", cfg.Health.Addr)
	assert.Equal(t, []string{"airdrop", "presale"}, cfg.Keywords)
	assert.Equal(t, 60*time.Second, cfg.Janitor.TTL)
	assert.Equal(t, 30*time.Second, cfg.Janitor.Period)

	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("HEALTH_ENABLED", "no")
	t.Setenv("CHART_TRIGGERS", "/chart, birdeye ,")
	t.Setenv("RATE_LIMIT", "not-a-number")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Token)
	assert.False(t, cfg.Health.Enabled)
	assert.Equal(t, []string{"/chart", "birdeye"}, cfg.ChartTriggers)
	assert.Equal(t, 25.0, cfg.RateLimit)
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "x")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [1, 2"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
