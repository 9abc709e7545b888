package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries the environment configuration shared by the radar binaries.
// Each binary validates only the fields it needs via ValidateFeed or
// ValidateGateway.
type Config struct {
	AppEnv  string
	AppName string

	LogLevel string
	OpsPort  string

	// Feed service.
	FeedURL          string
	FeedToken        string
	BufferCapacity   int
	HandshakeTimeout time.Duration
	MirrorEnabled    bool
	MirrorInterval   time.Duration

	// Gateway service.
	GatewayPort      string
	UpstreamURL      string
	IntrospectionURL string
	FeedTokenSecret  string
	FeedTokenTTL     time.Duration
	AdminSecret      string
	RouteTablePath   string
	UpstreamTimeout  time.Duration

	// Redis (snapshot mirror).
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisMaxRetries   int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           os.Getenv("APP_ENV"),
		AppName:          os.Getenv("APP_NAME"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		OpsPort:          os.Getenv("OPS_PORT"),
		FeedURL:          os.Getenv("FEED_URL"),
		FeedToken:        os.Getenv("FEED_TOKEN"),
		GatewayPort:      os.Getenv("GATEWAY_PORT"),
		UpstreamURL:      os.Getenv("UPSTREAM_URL"),
		IntrospectionURL: os.Getenv("INTROSPECTION_URL"),
		FeedTokenSecret:  os.Getenv("FEED_TOKEN_SECRET"),
		AdminSecret:      os.Getenv("ADMIN_SHARED_SECRET"),
		RouteTablePath:   os.Getenv("ROUTE_TABLE_PATH"),
		RedisHost:        os.Getenv("REDIS_HOST"),
		RedisPort:        os.Getenv("REDIS_PORT"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.AppName == "" {
		cfg.AppName = "impact-radar"
	}
	if cfg.OpsPort == "" {
		cfg.OpsPort = "9090"
	}
	if cfg.GatewayPort == "" {
		cfg.GatewayPort = "8090"
	}
	if cfg.RouteTablePath == "" {
		cfg.RouteTablePath = "config/routes.json"
	}
	if cfg.RedisPort == "" {
		cfg.RedisPort = "6379"
	}

	var err error
	if cfg.BufferCapacity, err = intEnv("FEED_BUFFER_CAPACITY", 100); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RedisPoolSize, err = intEnv("REDIS_POOL_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.RedisMinIdleConns, err = intEnv("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return nil, err
	}
	if cfg.RedisMaxRetries, err = intEnv("REDIS_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.HandshakeTimeout, err = durationEnv("FEED_HANDSHAKE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MirrorInterval, err = durationEnv("MIRROR_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.FeedTokenTTL, err = durationEnv("FEED_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = durationEnv("UPSTREAM_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.MirrorEnabled, err = boolEnv("MIRROR_ENABLED", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateFeed checks the variables the feed service cannot run without.
func (c *Config) ValidateFeed() error {
	if c.FeedURL == "" {
		return fmt.Errorf("missing required environment variable FEED_URL")
	}
	if c.MirrorEnabled && c.RedisHost == "" {
		return fmt.Errorf("MIRROR_ENABLED requires REDIS_HOST")
	}
	return nil
}

// ValidateGateway checks the variables the gateway cannot run without.
func (c *Config) ValidateGateway() error {
	if c.UpstreamURL == "" {
		return fmt.Errorf("missing required environment variable UPSTREAM_URL")
	}
	if c.IntrospectionURL == "" {
		return fmt.Errorf("missing required environment variable INTROSPECTION_URL")
	}
	if c.FeedTokenSecret == "" {
		return fmt.Errorf("missing required environment variable FEED_TOKEN_SECRET")
	}
	return nil
}

func intEnv(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func boolEnv(name string, fallback bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return b, nil
}
