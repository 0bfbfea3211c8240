package config

import (
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultHTTPTimeout   = 5 * time.Second
	defaultTodayCacheTTL = 10 * time.Minute
)

// Config holds application configuration.
type Config struct {
	Port string

	// CBRBaseURL root of the daily JSON feed
	CBRBaseURL  string
	HTTPTimeout time.Duration
	// TodayCacheTTL how long today's table is reused before asking the feed again
	TodayCacheTTL time.Duration

	// RedisAddr empty keeps preferences in memory only
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PrefsKey      string

	LogLevel string
}

// LoadConfig loads configuration from environment variables and .env file if present.
// Unusable values fall back to their defaults with a warning.
func LoadConfig(logger log.Logger) (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("CBR_BASE_URL", "https://www.cbr-xml-daily.ru")
	v.SetDefault("HTTP_TIMEOUT", defaultHTTPTimeout.String())
	v.SetDefault("TODAY_CACHE_TTL", defaultTodayCacheTTL.String())
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PREFS_KEY", "converter:preferences")
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	cfg := &Config{
		Port:          v.GetString("PORT"),
		CBRBaseURL:    v.GetString("CBR_BASE_URL"),
		HTTPTimeout:   duration(logger, v, "HTTP_TIMEOUT", defaultHTTPTimeout),
		TodayCacheTTL: duration(logger, v, "TODAY_CACHE_TTL", defaultTodayCacheTTL),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		PrefsKey:      v.GetString("PREFS_KEY"),
		LogLevel:      v.GetString("LOG_LEVEL"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		level.Warn(logger).Log("msg", "PORT not set", "default", cfg.Port)
	}
	if cfg.CBRBaseURL == "" {
		return nil, fmt.Errorf("CBR_BASE_URL must not be empty")
	}
	if cfg.RedisAddr == "" {
		level.Info(logger).Log("msg", "REDIS_ADDR not set, preferences are kept in memory")
	}

	return cfg, nil
}

func duration(logger log.Logger, v *viper.Viper, key string, fallback time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		level.Warn(logger).Log("msg", "invalid duration", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

// LevelOption maps LOG_LEVEL to a go-kit level filter, info when unknown.
func (c *Config) LevelOption() level.Option {
	switch c.LogLevel {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
