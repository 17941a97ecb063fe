package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the pathway router
type Config struct {
	// Content configuration
	ContentDir       string `env:"CONTENT_DIR" envDefault:""`
	StrictValidation bool   `env:"STRICT_VALIDATION" envDefault:"true"`

	// Evaluation configuration
	StepFactor   int `env:"STEP_FACTOR" envDefault:"4"`
	MaxParallel  int `env:"MAX_PARALLEL" envDefault:"8"`
	CELCacheSize int `env:"CEL_CACHE_SIZE" envDefault:"256"`

	// Worker configuration
	WorkerEnabled bool   `env:"WORKER_ENABLED" envDefault:"false"`
	WorkerID      string `env:"WORKER_ID" envDefault:"pathway-router-1"`

	// Redis configuration
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASS" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Stream configuration
	StreamKey     string        `env:"STREAM_KEY" envDefault:"pathways.route"`
	ConsumerGroup string        `env:"CONSUMER_GROUP" envDefault:"pathway-routers"`
	ResultStream  string        `env:"RESULT_STREAM" envDefault:"pathways.routed"`
	BlockTime     time.Duration `env:"BLOCK_TIME" envDefault:"1s"`

	// HTTP configuration
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.StepFactor < 1 {
		return fmt.Errorf("STEP_FACTOR must be at least 1")
	}

	if c.MaxParallel < 1 {
		return fmt.Errorf("MAX_PARALLEL must be at least 1")
	}

	if c.CELCacheSize < 1 {
		return fmt.Errorf("CEL_CACHE_SIZE must be at least 1")
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	// Redis settings only matter when the stream worker runs
	if !c.WorkerEnabled {
		return nil
	}

	if c.WorkerID == "" {
		return fmt.Errorf("WORKER_ID is required")
	}

	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.StreamKey == "" {
		return fmt.Errorf("STREAM_KEY is required")
	}

	if c.ConsumerGroup == "" {
		return fmt.Errorf("CONSUMER_GROUP is required")
	}

	if c.ResultStream == "" {
		return fmt.Errorf("RESULT_STREAM is required")
	}

	if c.ResultStream == c.StreamKey {
		return fmt.Errorf("RESULT_STREAM must differ from STREAM_KEY")
	}

	if c.BlockTime <= 0 {
		return fmt.Errorf("BLOCK_TIME must be positive")
	}

	return nil
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	return validLevels[level]
}

// ErrorStream returns the stream failed requests are published to.
func (c *Config) ErrorStream() string {
	return c.ResultStream + ".errors"
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	content := c.ContentDir
	if content == "" {
		content = "<embedded>"
	}
	return fmt.Sprintf(
		"Config{ContentDir=%s, StrictValidation=%v, StepFactor=%d, MaxParallel=%d, CELCacheSize=%d, "+
			"WorkerEnabled=%v, WorkerID=%s, RedisAddr=%s, RedisDB=%d, StreamKey=%s, ConsumerGroup=%s, "+
			"ResultStream=%s, HTTPPort=%d, LogLevel=%s}",
		content,
		c.StrictValidation,
		c.StepFactor,
		c.MaxParallel,
		c.CELCacheSize,
		c.WorkerEnabled,
		c.WorkerID,
		c.RedisAddr,
		c.RedisDB,
		c.StreamKey,
		c.ConsumerGroup,
		c.ResultStream,
		c.HTTPPort,
		c.LogLevel,
	)
}
