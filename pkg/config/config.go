package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/chatstat/pkg/dialect"
	"github.com/ccollicutt/chatstat/pkg/parser"
)

// ErrNoDialect is returned when a forced dialect name matches no dialect.
var ErrNoDialect = errors.New("no such dialect")

// Load reads and validates a configuration file. Files ending in .toml are
// decoded as TOML; everything else as YAML.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = decodeTOML(data, cfg)
	} else {
		err = decodeYAML(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadDefault returns the default configuration with environment overrides
// applied, for runs without a config file.
func LoadDefault() (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks a configuration for errors and compiles dialects.
func Validate(cfg *Config) error {
	if cfg.SampleSize < 0 {
		return fmt.Errorf("sample_size: must be >= 0, got %d", cfg.SampleSize)
	}
	if cfg.SampleSize == 0 {
		cfg.SampleSize = DefaultSampleSize
	}

	if cfg.Workers < 0 {
		return fmt.Errorf("workers: must be >= 0, got %d", cfg.Workers)
	}

	dialects, err := compileDialects(cfg.Dialects)
	if err != nil {
		return err
	}
	cfg.dialects = dialects

	if cfg.Dialect != "" {
		if _, ok := dialect.Lookup(cfg.dialects, cfg.Dialect); !ok {
			return fmt.Errorf("dialect: %w %q (known: %s)",
				ErrNoDialect, cfg.Dialect, strings.Join(dialect.Names(cfg.dialects), ", "))
		}
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := ValidateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

// compileDialects returns the custom dialects followed by every built-in whose
// name they do not reuse.
func compileDialects(custom []DialectConfig) ([]*dialect.Dialect, error) {
	var out []*dialect.Dialect
	seen := make(map[string]bool)

	for i, dc := range custom {
		d, err := dialect.New(dc.Name, dc.Header, dc.Timestamp, dc.Layout)
		if err != nil {
			return nil, fmt.Errorf("dialects[%d] (%s): %w", i, dc.Name, err)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("dialects[%d] (%s): duplicate name", i, dc.Name)
		}
		seen[d.Name] = true
		d.Example = dc.Example
		if d.Example != "" && !d.MatchHeader(d.Example) {
			return nil, fmt.Errorf("dialects[%d] (%s): example %q does not match header", i, dc.Name, dc.Example)
		}
		out = append(out, d)
	}

	for _, d := range dialect.Defaults() {
		if !seen[d.Name] {
			out = append(out, d)
		}
	}
	return out, nil
}

// ValidateWebhook checks one webhook and fills in its defaults.
func ValidateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnWarnings
	case WebhookTriggerOnWarnings, WebhookTriggerAlways, WebhookTriggerNever:
	default:
		return fmt.Errorf("invalid trigger %q (must be on_warnings, always, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}

// CompiledDialects returns the dialects in matching order. Validate must
// have been called; before that only the built-ins are returned.
func (c *Config) CompiledDialects() []*dialect.Dialect {
	if c.dialects == nil {
		return dialect.Defaults()
	}
	return c.dialects
}

// ForcedDialect returns the dialect named by Dialect, or nil.
func (c *Config) ForcedDialect() *dialect.Dialect {
	if c.Dialect == "" {
		return nil
	}
	d, _ := dialect.Lookup(c.CompiledDialects(), c.Dialect)
	return d
}

// Exclusions builds the exclusion list from Exclude and ExtraExclude.
func (c *Config) Exclusions() *parser.Exclusions {
	base := parser.DefaultExclusions()
	if len(c.Exclude) > 0 {
		base = parser.NewExclusions(c.Exclude...)
	}
	return base.With(c.ExtraExclude...)
}

// ParserOptions translates the configuration into parser options.
func (c *Config) ParserOptions(logger *slog.Logger) []parser.Option {
	opts := []parser.Option{
		parser.WithExclusions(c.Exclusions()),
		parser.WithSampleSize(c.SampleSize),
		parser.WithDialects(c.CompiledDialects()...),
		parser.WithSentinel(c.Sentinel),
		parser.WithLogger(logger),
	}
	if d := c.ForcedDialect(); d != nil {
		opts = append(opts, parser.WithDialect(d))
	}
	return opts
}
