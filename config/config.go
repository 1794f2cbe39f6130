// Package config loads the host's engine configuration from YAML.
//
// A file looks like:
//
//	host_version: 2.3.0
//	log_level: info
//	notify:
//	  backend: redis
//	  redis_addr: localhost:6379
//	  channel_prefix: "hookkit:"
//	extensions:
//	  audit:
//	    enabled: false
//	    sink: stdout
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/rs/zerolog"
	"github.com/toolink/hookkit/notify"
	"gopkg.in/yaml.v3"
)

// Notification backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Defaults applied by ValidateAndPrepare.
const (
	DefaultHostVersion   = "0.0.0"
	DefaultLogLevel      = "info"
	DefaultChannelPrefix = notify.DefaultChannelPrefix
)

var (
	ErrEmptyConfigPath = errors.New("config path is empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidConfig   = errors.New("invalid config")
)

// Config is the engine configuration.
type Config struct {
	HostVersion string `yaml:"host_version"`
	LogLevel    string `yaml:"log_level"`

	Notify NotifyConfig `yaml:"notify"`

	// Extensions holds per-extension overrides keyed by extension name.
	// They sit between an extension's defaults and the config passed at
	// registration.
	Extensions map[string]map[string]any `yaml:"extensions"`
}

// NotifyConfig selects and configures the notification backend.
type NotifyConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
	ChannelPrefix string `yaml:"channel_prefix,omitempty"`

	// QueueSize > 0 gives each subscription a buffered worker queue.
	QueueSize int `yaml:"queue_size,omitempty"`
}

// Default returns a configuration using the in-memory backend.
func Default() *Config {
	return &Config{
		HostVersion: DefaultHostVersion,
		LogLevel:    DefaultLogLevel,
		Notify: NotifyConfig{
			Backend:       BackendMemory,
			ChannelPrefix: DefaultChannelPrefix,
		},
		Extensions: make(map[string]map[string]any),
	}
}

// Load reads and validates the file at path. A missing file yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyConfigPath
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes data over Default() and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}
	if err := cfg.ValidateAndPrepare(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateAndPrepare fills empty fields with defaults, normalizes values and
// reports every problem found at once.
func (c *Config) ValidateAndPrepare() error {
	if c.HostVersion == "" {
		c.HostVersion = DefaultHostVersion
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.Notify.Backend = strings.ToLower(strings.TrimSpace(c.Notify.Backend))
	if c.Notify.Backend == "" {
		c.Notify.Backend = BackendMemory
	}
	if c.Notify.ChannelPrefix == "" {
		c.Notify.ChannelPrefix = DefaultChannelPrefix
	}
	if c.Extensions == nil {
		c.Extensions = make(map[string]map[string]any)
	}

	var errs []error
	if _, err := version.NewVersion(c.HostVersion); err != nil {
		errs = append(errs, fmt.Errorf("host_version %q: %w", c.HostVersion, err))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch c.Notify.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Notify.RedisAddr == "" {
			errs = append(errs, errors.New("notify.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("notify.backend %q is not one of %s, %s", c.Notify.Backend, BackendMemory, BackendRedis))
	}
	if c.Notify.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("notify.queue_size must not be negative, got %d", c.Notify.QueueSize))
	}
	for name, override := range c.Extensions {
		if name == "" {
			errs = append(errs, errors.New("extensions: empty extension name"))
			continue
		}
		if v, ok := override["enabled"]; ok {
			if _, isBool := v.(bool); !isBool {
				errs = append(errs, fmt.Errorf("extensions.%s.enabled must be a boolean", name))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
