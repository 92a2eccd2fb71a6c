package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("TZ", "")
	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.SearchCacheTTL)
	assert.Equal(t, "trip-searches", cfg.KafkaSearchTopic)
	assert.Equal(t, time.UTC, cfg.TimeZone)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadServerConfigOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SEARCH_CACHE_TTL", "1m")
	t.Setenv("SEARCH_RATE_LIMIT", "5.5")
	t.Setenv("MIGRATE", "TRUE")
	t.Setenv("TZ", "Asia/Kolkata")
	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, time.Minute, cfg.SearchCacheTTL)
	assert.Equal(t, 5.5, cfg.SearchRateLimit)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, "Asia/Kolkata", cfg.TimeZone.String())
}

func TestLoadServerConfigCollectsErrors(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "soon")
	t.Setenv("SEARCH_CACHE_SIZE", "0")
	_, err := LoadServerConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_READ_TIMEOUT")
	assert.Contains(t, err.Error(), "SEARCH_CACHE_SIZE")
}

func TestLoadConsumerConfig(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_BROKER", "b:9092")
	t.Setenv("REDIS_RETRY_ATTEMPTS", "5")
	cfg, err := LoadConsumerConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, "trip-search-analytics", cfg.KafkaGroup)
}
