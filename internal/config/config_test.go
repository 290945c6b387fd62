package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Crawler.Workers)
	assert.Equal(t, 50, cfg.Crawler.MaxPages)
	assert.Equal(t, 2*time.Second, cfg.Crawler.RateLimitMin)
	assert.Equal(t, "catalog_crawler", cfg.Database.DBName)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CRAWLER_WORKERS", "8")
	t.Setenv("CRAWLER_RATE_LIMIT_MIN", "500ms")
	t.Setenv("CRAWLER_USER_AGENTS", "ua-one,ua-two")
	t.Setenv("MOHAGNI_CURRENCY", "USD")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Crawler.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Crawler.RateLimitMin)
	assert.Equal(t, []string{"ua-one", "ua-two"}, cfg.Crawler.UserAgents)
	assert.Equal(t, "USD", cfg.Sites.Mohagni.Currency)
}

func TestValidate(t *testing.T) {
	t.Run("workers below one", func(t *testing.T) {
		cfg, _ := Load()
		cfg.Crawler.Workers = 0
		assert.ErrorContains(t, cfg.Validate(), "CRAWLER_WORKERS")
	})

	t.Run("rate limit window inverted", func(t *testing.T) {
		cfg, _ := Load()
		cfg.Crawler.RateLimitMin = 10 * time.Second
		cfg.Crawler.RateLimitMax = time.Second
		assert.ErrorContains(t, cfg.Validate(), "CRAWLER_RATE_LIMIT_MIN")
	})

	t.Run("relay batch size below one", func(t *testing.T) {
		cfg, _ := Load()
		cfg.Relay.BatchSize = 0
		assert.ErrorContains(t, cfg.Validate(), "RELAY_BATCH_SIZE")
	})
}

func TestSitesConfig_Seed(t *testing.T) {
	cfg, _ := Load()

	seed, ok := cfg.Sites.Seed("thesting")
	require.True(t, ok)
	assert.Equal(t, "NL", seed.Country)

	_, ok = cfg.Sites.Seed("unknown")
	assert.False(t, ok)
}
