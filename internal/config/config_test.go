package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"APP_ENV", "APP_NAME", "LOG_LEVEL", "OPS_PORT",
		"FEED_URL", "FEED_TOKEN", "FEED_BUFFER_CAPACITY", "FEED_HANDSHAKE_TIMEOUT",
		"MIRROR_ENABLED", "MIRROR_INTERVAL",
		"GATEWAY_PORT", "UPSTREAM_URL", "INTROSPECTION_URL",
		"FEED_TOKEN_SECRET", "FEED_TOKEN_TTL", "ADMIN_SHARED_SECRET",
		"ROUTE_TABLE_PATH", "UPSTREAM_TIMEOUT",
		"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB",
		"REDIS_POOL_SIZE", "REDIS_MIN_IDLE_CONNS", "REDIS_MAX_RETRIES",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "impact-radar", cfg.AppName)
	assert.Equal(t, "9090", cfg.OpsPort)
	assert.Equal(t, "8090", cfg.GatewayPort)
	assert.Equal(t, "config/routes.json", cfg.RouteTablePath)
	assert.Equal(t, 100, cfg.BufferCapacity)
	assert.Equal(t, 10*time.Second, cfg.HandshakeTimeout)
	assert.Equal(t, 15*time.Second, cfg.MirrorInterval)
	assert.Equal(t, 24*time.Hour, cfg.FeedTokenTTL)
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
	assert.False(t, cfg.MirrorEnabled)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FEED_URL", "wss://feed.example.com/stream")
	t.Setenv("FEED_BUFFER_CAPACITY", "250")
	t.Setenv("FEED_TOKEN_TTL", "1h")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("MIRROR_ENABLED", "true")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "wss://feed.example.com/stream", cfg.FeedURL)
	assert.Equal(t, 250, cfg.BufferCapacity)
	assert.Equal(t, time.Hour, cfg.FeedTokenTTL)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.True(t, cfg.MirrorEnabled)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("FEED_BUFFER_CAPACITY", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FEED_BUFFER_CAPACITY")

	clearEnv(t)
	t.Setenv("UPSTREAM_TIMEOUT", "30 seconds")

	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPSTREAM_TIMEOUT")
}

func TestValidateFeed(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Error(t, cfg.ValidateFeed())

	cfg.FeedURL = "wss://feed.example.com/stream"
	require.NoError(t, cfg.ValidateFeed())

	cfg.MirrorEnabled = true
	require.Error(t, cfg.ValidateFeed())

	cfg.RedisHost = "redis"
	require.NoError(t, cfg.ValidateFeed())
}

func TestValidateGateway(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Error(t, cfg.ValidateGateway())

	cfg.UpstreamURL = "http://api.internal:8080"
	require.Error(t, cfg.ValidateGateway())

	cfg.IntrospectionURL = "http://identity.internal:8081/introspect"
	require.Error(t, cfg.ValidateGateway())

	cfg.FeedTokenSecret = "sekrit"
	require.NoError(t, cfg.ValidateGateway())
}
