package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL    = "https://billing.test/api"
	testServerName = "billing"
)

const testYAML = `
log:
  level: debug
http:
  default: billing
  servers:
    billing:
      base_url: https://billing.test/api
      timeout: 5s
      headers:
        Accept: application/json
      retry:
        tries: 3
        delay: 200ms
      rate:
        limit: 10
        burst: 20
    search:
      base_url: https://search.test
`

func noEnv() []string { return nil }

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := loadBytes(nil, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
	assert.Equal(t, "default", cfg.HTTP.Default)
	assert.Empty(t, cfg.HTTP.Servers)
}

func TestLoadBytes(t *testing.T) {
	cfg, err := loadBytes([]byte(testYAML), noEnv)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, testServerName, cfg.HTTP.Default)
	require.Len(t, cfg.HTTP.Servers, 2)

	billing := cfg.HTTP.Servers[testServerName]
	assert.Equal(t, testBaseURL, billing.BaseURL)
	assert.Equal(t, 5*time.Second, billing.Timeout)
	assert.Equal(t, "application/json", billing.Headers["Accept"])
	assert.Equal(t, 3, billing.Retry.Tries)
	assert.Equal(t, 200*time.Millisecond, billing.Retry.Delay)
	assert.InDelta(t, 10.0, billing.Rate.Limit, 0)
	assert.Equal(t, 20, billing.Rate.Burst)

	assert.True(t, cfg.Exists("http.servers.search.base_url"))
	assert.Equal(t, "https://search.test", cfg.String("http.servers.search.base_url"))
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	environ := func() []string {
		return []string{
			"FLUENT_HTTP__DEFAULT=search",
			"FLUENT_HTTP__SERVERS__SEARCH__TIMEOUT=2s",
			"FLUENT_HTTP__SERVERS__SEARCH__RETRY__TRIES=4",
			"PATH=/usr/bin",
		}
	}

	cfg, err := loadBytes([]byte(testYAML), environ)
	require.NoError(t, err)

	assert.Equal(t, "search", cfg.HTTP.Default)
	search := cfg.HTTP.Servers["search"]
	assert.Equal(t, "https://search.test", search.BaseURL)
	assert.Equal(t, 2*time.Second, search.Timeout)
	assert.Equal(t, 4, search.Retry.Tries)
	assert.False(t, cfg.Exists("path"))
}

func TestLoadFile(t *testing.T) {
	t.Run("reads yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, testBaseURL, cfg.HTTP.Servers[testServerName].BaseURL)
	})

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("http: [unclosed"), 0o600))

		_, err := LoadFile(path)
		require.Error(t, err)
	})
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "relative base url",
			yaml:  "http:\n  servers:\n    main:\n      base_url: not a url\n",
			field: "http.servers.main.base_url",
		},
		{
			name:  "negative tries",
			yaml:  "http:\n  servers:\n    main:\n      retry:\n        tries: -1\n",
			field: "http.servers.main.retry.tries",
		},
		{
			name:  "unknown log level",
			yaml:  "log:\n  level: loud\n",
			field: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadBytes([]byte(tt.yaml), noEnv)
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "invalid", cfgErr.Category)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestHTTPConfigServer(t *testing.T) {
	cfg, err := loadBytes([]byte(testYAML), noEnv)
	require.NoError(t, err)

	t.Run("empty name resolves default", func(t *testing.T) {
		server, err := cfg.HTTP.Server("")
		require.NoError(t, err)
		assert.Equal(t, testBaseURL, server.BaseURL)
	})

	t.Run("explicit name", func(t *testing.T) {
		server, err := cfg.HTTP.Server("search")
		require.NoError(t, err)
		assert.Equal(t, "https://search.test", server.BaseURL)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := cfg.HTTP.Server("missing")
		require.Error(t, err)
		assert.True(t, IsNotConfigured(err))
		assert.Contains(t, err.Error(), "http.servers.missing")
	})

	t.Run("no default configured", func(t *testing.T) {
		empty := HTTPConfig{}
		_, err := empty.Server("")
		assert.True(t, IsNotConfigured(err))
	})
}

func TestValidateServer(t *testing.T) {
	require.NoError(t, ValidateServer("ok", ServerConfig{BaseURL: testBaseURL, Timeout: time.Second}))

	err := ValidateServer("bad", ServerConfig{Timeout: -time.Second})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "http.servers.bad.timeout", cfgErr.Field)
}
