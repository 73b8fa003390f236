package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured indicates a requested feature or server is absent from configuration.
var ErrNotConfigured = errors.New("not configured")

// ConfigError represents a configuration error with actionable guidance.
// All error messages are lowercase following Go conventions.
//
//nolint:revive // ConfigError is intentionally named for clarity in external API usage
type ConfigError struct {
	Category string   // error category: "missing", "invalid", "not_configured"
	Field    string   // config field path (e.g., "http.servers.billing")
	Message  string   // user-friendly error message (lowercase)
	Action   string   // actionable instruction (lowercase)
	Details  []string // additional details or examples
}

// Error implements the error interface with lowercase formatting.
func (e *ConfigError) Error() string {
	var parts []string

	if e.Category != "" {
		parts = append(parts, fmt.Sprintf("config_%s:", e.Category))
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Action != "" {
		parts = append(parts, e.Action)
	}
	if len(e.Details) > 0 {
		parts = append(parts, strings.Join(e.Details, "; "))
	}

	return strings.Join(parts, " ")
}

// Is lets errors.Is(err, ErrNotConfigured) match not_configured errors.
func (e *ConfigError) Is(target error) bool {
	return target == ErrNotConfigured && e.Category == "not_configured"
}

// NewInvalidFieldError creates an error for an invalid configuration value.
func NewInvalidFieldError(field, message string, validOptions []string) *ConfigError {
	err := &ConfigError{
		Category: "invalid",
		Field:    field,
		Message:  message,
	}
	if len(validOptions) > 0 {
		err.Action = fmt.Sprintf("must be one of: %s", strings.Join(validOptions, ", "))
	}
	return err
}

// NewNotConfiguredError creates an error for a feature that has no configuration entry.
func NewNotConfiguredError(feature, envVar, yamlPath string) *ConfigError {
	return &ConfigError{
		Category: "not_configured",
		Field:    feature,
		Message:  "(missing)",
		Action:   fmt.Sprintf("set %s env var or add %s to config.yaml", envVar, yamlPath),
	}
}

// NewServerNotConfiguredError reports a named HTTP server missing from http.servers.
func NewServerNotConfiguredError(name string) *ConfigError {
	return NewNotConfiguredError(
		"http.servers."+name,
		"FLUENT_HTTP__SERVERS__"+strings.ToUpper(name)+"__BASE_URL",
		"http.servers."+name,
	)
}

// IsNotConfigured checks if an error indicates a feature is not configured.
func IsNotConfigured(err error) bool {
	return err != nil && errors.Is(err, ErrNotConfigured)
}
