package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config represents the module configuration: logging plus the named HTTP servers
// the client registry resolves. The koanf instance is kept for raw key access.
type Config struct {
	Log  LogConfig  `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
	HTTP HTTPConfig `koanf:"http" json:"http" yaml:"http" mapstructure:"http"`

	k *koanf.Koanf `json:"-" yaml:"-" mapstructure:"-"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// HTTPConfig lists the named servers and which one is used when no name is given.
type HTTPConfig struct {
	Default string                  `koanf:"default" json:"default" yaml:"default" mapstructure:"default"`
	Servers map[string]ServerConfig `koanf:"servers" json:"servers" yaml:"servers" mapstructure:"servers" validate:"dive"`
}

// ServerConfig configures one named client. Zero values mean "not set".
type ServerConfig struct {
	BaseURL string            `koanf:"base_url" json:"base_url" yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration     `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	Headers map[string]string `koanf:"headers" json:"headers" yaml:"headers" mapstructure:"headers"`
	Retry   RetryConfig       `koanf:"retry" json:"retry" yaml:"retry" mapstructure:"retry"`
	Rate    RateConfig        `koanf:"rate" json:"rate" yaml:"rate" mapstructure:"rate"`
}

// RetryConfig sets default retry behaviour. Tries counts the first attempt.
type RetryConfig struct {
	Tries int           `koanf:"tries" json:"tries" yaml:"tries" mapstructure:"tries" validate:"gte=0"`
	Delay time.Duration `koanf:"delay" json:"delay" yaml:"delay" mapstructure:"delay" validate:"gte=0"`
}

// RateConfig limits outbound requests per second for one server. Limit 0 disables it.
type RateConfig struct {
	Limit float64 `koanf:"limit" json:"limit" yaml:"limit" mapstructure:"limit" validate:"gte=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// ResolveName maps an empty name to the configured default.
func (h *HTTPConfig) ResolveName(name string) string {
	if name == "" {
		return h.Default
	}
	return name
}

// Server returns the configuration for name (or the default when name is empty).
// Absent entries yield a not_configured *ConfigError wrapping ErrNotConfigured.
func (h *HTTPConfig) Server(name string) (ServerConfig, error) {
	resolved := h.ResolveName(name)
	if resolved == "" {
		return ServerConfig{}, NewNotConfiguredError("http.default", "FLUENT_HTTP__DEFAULT", "http.default")
	}
	server, ok := h.Servers[resolved]
	if !ok {
		return ServerConfig{}, NewServerNotConfiguredError(resolved)
	}
	return server, nil
}

// String returns the raw value stored at key, or "" when absent.
func (c *Config) String(key string) string {
	if c == nil || c.k == nil {
		return ""
	}
	return c.k.String(key)
}

// Exists reports whether key is present in any loaded source.
func (c *Config) Exists(key string) bool {
	if c == nil || c.k == nil {
		return false
	}
	return c.k.Exists(key)
}
