// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	HTTPAddr      string        `mapstructure:"HTTP_ADDR"`
	DBURL         string        `mapstructure:"DB_URL"`
	GithubToken   string        `mapstructure:"GITHUB_TOKEN"`
	// Optional API endpoint override for GitHub Enterprise deployments.
	GithubBaseURL string        `mapstructure:"GITHUB_BASE_URL"`
	WebhookSecret string        `mapstructure:"WEBHOOK_SECRET"`
	SyncInterval  time.Duration `mapstructure:"SYNC_INTERVAL"`

	// Number of repositories reconciled in parallel per run.
	SyncConcurrency int `mapstructure:"SYNC_CONCURRENCY"`

	// Background job dispatcher sizing.
	QueueWorkers  int `mapstructure:"QUEUE_WORKERS"`
	QueueCapacity int `mapstructure:"QUEUE_CAPACITY"`

	// Points issued per settled commit.
	RewardRate int64 `mapstructure:"REWARD_RATE"`

	// Species group assigned when the catalog has no groups to pick from.
	DefaultSpeciesGroup string `mapstructure:"DEFAULT_SPECIES_GROUP"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("GITHUB_BASE_URL", "")
	viper.SetDefault("SYNC_INTERVAL", "1h")
	viper.SetDefault("SYNC_CONCURRENCY", 5)
	viper.SetDefault("QUEUE_WORKERS", 4)
	viper.SetDefault("QUEUE_CAPACITY", 256)
	viper.SetDefault("REWARD_RATE", 10)
	viper.SetDefault("DEFAULT_SPECIES_GROUP", "SHRIMP")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.GithubToken == "" {
		return nil, errors.New("GITHUB_TOKEN is a required configuration field")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("WEBHOOK_SECRET is a required configuration field")
	}
	if cfg.RewardRate <= 0 {
		return nil, errors.New("REWARD_RATE must be a positive integer")
	}
	if cfg.SyncConcurrency <= 0 {
		return nil, errors.New("SYNC_CONCURRENCY must be a positive integer")
	}

	return &cfg, nil
}
