// Package config provides configuration loading and validation for chatstat.
package config

import (
	"time"

	"github.com/ccollicutt/chatstat/pkg/dialect"
)

// Config is the root configuration structure loaded from YAML or TOML.
type Config struct {
	// SampleSize is the number of leading lines used for dialect detection.
	SampleSize int `yaml:"sample_size,omitempty" toml:"sample_size,omitempty"`

	// Dialect forces a dialect by name and skips detection.
	Dialect string `yaml:"dialect,omitempty" toml:"dialect,omitempty"`

	// Dialects adds custom export conventions. They are tried ahead of the
	// built-ins and replace a built-in of the same name.
	Dialects []DialectConfig `yaml:"dialects,omitempty" toml:"dialects,omitempty"`

	// Exclude replaces the default system-notice list when set.
	Exclude []string `yaml:"exclude,omitempty" toml:"exclude,omitempty"`

	// ExtraExclude is appended to the default (or replaced) list.
	ExtraExclude []string `yaml:"extra_exclude,omitempty" toml:"extra_exclude,omitempty"`

	// Sentinel is the author name that marks unattributed lines.
	Sentinel string `yaml:"sentinel,omitempty" toml:"sentinel,omitempty"`

	// Workers bounds concurrent file parsing. Zero means one per CPU.
	Workers int `yaml:"workers,omitempty" toml:"workers,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty" toml:"webhooks,omitempty"`

	// compiled dialects in matching order (populated during validation)
	dialects []*dialect.Dialect
}

// DialectConfig is a dialect described as pattern strings.
type DialectConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Header    string `yaml:"header" toml:"header"`
	Timestamp string `yaml:"timestamp" toml:"timestamp"`
	Layout    string `yaml:"layout" toml:"layout"`
	Example   string `yaml:"example,omitempty" toml:"example,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnWarnings fires only when parsing produced warnings (default).
	WebhookTriggerOnWarnings WebhookTrigger = "on_warnings"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty" toml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url" toml:"url"`

	// Token is an optional bearer token. ${VAR} and $VAR are expanded.
	Token string `yaml:"token,omitempty" toml:"token,omitempty"`

	// Trigger defaults to "on_warnings".
	Trigger WebhookTrigger `yaml:"trigger,omitempty" toml:"trigger,omitempty"`

	// Timeout defaults to 10s.
	Timeout time.Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}
