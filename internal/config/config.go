package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	JWTExpiry   time.Duration

	LogLevel  string
	LogFormat string

	SyncTimezone   *time.Location
	SyncStaleAfter time.Duration
	PresenceTTL    time.Duration

	MigrateOnStart bool

	DBMaxConns       int32
	DBMinConns       int32
	RedisPoolSize    int
	DBConnectTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	expiry, err := time.ParseDuration(v.GetString("JWT_EXPIRY"))
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}

	staleAfter, err := time.ParseDuration(v.GetString("SYNC_STALE_AFTER"))
	if err != nil || staleAfter <= 0 {
		return nil, errors.New("invalid SYNC_STALE_AFTER format")
	}

	presenceTTL, err := time.ParseDuration(v.GetString("PRESENCE_TTL"))
	if err != nil || presenceTTL <= 0 {
		return nil, errors.New("invalid PRESENCE_TTL format")
	}

	connectTimeout, err := time.ParseDuration(v.GetString("DB_CONNECT_TIMEOUT"))
	if err != nil || connectTimeout <= 0 {
		return nil, errors.New("invalid DB_CONNECT_TIMEOUT format")
	}

	loc, err := time.LoadLocation(v.GetString("SYNC_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_TIMEZONE: %w", err)
	}

	cfg := &Config{
		ServerPort:     v.GetString("SERVER_PORT"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		RedisURL:       v.GetString("REDIS_URL"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTExpiry:      expiry,
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		SyncTimezone:   loc,
		SyncStaleAfter: staleAfter,
		PresenceTTL:    presenceTTL,
		MigrateOnStart: v.GetBool("MIGRATE_ON_START"),

		DBMaxConns:       v.GetInt32("DB_MAX_CONNS"),
		DBMinConns:       v.GetInt32("DB_MIN_CONNS"),
		RedisPoolSize:    v.GetInt("REDIS_POOL_SIZE"),
		DBConnectTimeout: connectTimeout,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("JWT_EXPIRY", "24h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("SYNC_TIMEZONE", "Local")
	v.SetDefault("SYNC_STALE_AFTER", "15m")
	v.SetDefault("PRESENCE_TTL", "5m")
	v.SetDefault("MIGRATE_ON_START", true)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("REDIS_POOL_SIZE", 0)
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
}

// LoadLogConfig reads only the logging settings, for commands that do not
// need the full server configuration.
func LoadLogConfig() (level, format string) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return v.GetString("LOG_LEVEL"), v.GetString("LOG_FORMAT")
}
