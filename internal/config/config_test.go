package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("CRON_DIGEST", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.DataSource.Timeout)
	assert.Equal(t, 30, cfg.Digest.Horizon)
	assert.Equal(t, 2.0, cfg.Digest.RiskFreeRate)
	assert.False(t, cfg.DigestEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlBody := `
server:
  port: 9000
cache:
  backend: redis
  ttl: 15m
schedule:
  digest_cron: "0 0 18 * * 1-5"
digest:
  tickers: [AAPL, MSFT]
  horizon: 20
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))
	t.Setenv("PORT", "9100")
	t.Setenv("DIGEST_TICKERS", "TSLA, INFY.NS")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"TSLA", "INFY.NS"}, cfg.Digest.Tickers)
	assert.Equal(t, 20, cfg.Digest.Horizon)
	assert.True(t, cfg.DigestEnabled())
}

func TestValidate(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("DIGEST_TICKERS", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	cfg.Cache.Backend = "memcached"
	assert.Error(t, cfg.Validate())

	cfg.Cache.Backend = "memory"
	assert.Error(t, cfg.ValidateDigest(), "digest needs telegram settings")

	cfg.Telegram.BotToken = "token"
	cfg.Telegram.ChatID = "42"
	cfg.Digest.Tickers = []string{"AAPL"}
	assert.NoError(t, cfg.ValidateDigest())

	cfg.Digest.Horizon = 90
	assert.Error(t, cfg.ValidateDigest())
}
