// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Boost    BoostConfig    `mapstructure:"boost"`
	Ranking  RankingConfig  `mapstructure:"ranking"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	AllowedOrigin   string        `mapstructure:"allowed_origin"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestsPerSec  float64       `mapstructure:"requests_per_sec"`
	RequestBurst    int           `mapstructure:"request_burst"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// RedisConfig holds the optional feed snapshot cache configuration.
// An empty Addr disables caching entirely.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	FeedTTL  time.Duration `mapstructure:"feed_ttl"`
}

// QuotaConfig holds credit accounting configuration.
type QuotaConfig struct {
	// DefaultPackCredits is the credit count granted for a confirmed
	// purchase whose price id is not in the pack catalog.
	DefaultPackCredits int `mapstructure:"default_pack_credits"`
}

// BoostConfig holds boost pipeline configuration.
type BoostConfig struct {
	// Cooldown is the minimum time between two boosts of the same wish
	// from the same session.
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// RankingConfig holds feed ordering configuration.
type RankingConfig struct {
	// Gravity is the decay exponent of the hot score
	// boosts / (age_hours + 2)^gravity.
	Gravity float64 `mapstructure:"gravity"`
	// LegendsThreshold is the minimum boost count for the legends feed.
	LegendsThreshold int64 `mapstructure:"legends_threshold"`
	// RisingWindow is the trailing window counted by the rising feed.
	RisingWindow time.Duration `mapstructure:"rising_window"`
	// DefaultLimit and MaxLimit bound feed pagination.
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// StripeConfig holds the checkout bridge configuration.
type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	// DefaultPriceID is used when a checkout request does not name a price.
	DefaultPriceID string `mapstructure:"default_price_id"`
	// APIBase is overridable for tests.
	APIBase string `mapstructure:"api_base"`
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// Environment variables use underscore separator and uppercase
	// e.g., SERVER_PORT, DATABASE_HOST, STRIPE_SECRET_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origin", "*")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.requests_per_sec", 20)
	v.SetDefault("server.request_burst", 40)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wishingwell")
	v.SetDefault("database.name", "wishingwell")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Redis feed cache defaults (disabled unless addr is set)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.feed_ttl", "10s")

	// Quota defaults
	v.SetDefault("quota.default_pack_credits", 10)

	// Boost defaults
	v.SetDefault("boost.cooldown", "60s")

	// Ranking defaults
	v.SetDefault("ranking.gravity", 1.8)
	v.SetDefault("ranking.legends_threshold", 100)
	v.SetDefault("ranking.rising_window", "24h")
	v.SetDefault("ranking.default_limit", 60)
	v.SetDefault("ranking.max_limit", 100)

	// Stripe defaults
	v.SetDefault("stripe.default_price_id", "price_boost_10p")
	v.SetDefault("stripe.api_base", "https://api.stripe.com")
}
