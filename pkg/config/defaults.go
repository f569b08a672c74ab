package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/chatstat/pkg/detector"
	"github.com/ccollicutt/chatstat/pkg/parser"
)

// Default values for configuration.
const (
	DefaultSampleSize     = detector.DefaultSampleSize
	DefaultSentinel       = parser.DefaultSentinel
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvSampleSize = "CHATSTAT_SAMPLE_SIZE"
	EnvDialect    = "CHATSTAT_DIALECT"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SampleSize: DefaultSampleSize,
		Sentinel:   DefaultSentinel,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() error {
	if v := strings.TrimSpace(os.Getenv(EnvSampleSize)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSampleSize, err)
		}
		c.SampleSize = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvDialect)); v != "" {
		c.Dialect = v
	}
	return nil
}
