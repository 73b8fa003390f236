package http

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/fluent-http/config"
)

func testHTTPConfig() config.HTTPConfig {
	return config.HTTPConfig{
		Default: "main",
		Servers: map[string]config.ServerConfig{
			"main": {
				BaseURL: "https://main.test/v1/",
				Timeout: 5 * time.Second,
				Headers: map[string]string{"Accept": "application/vnd.main+json"},
				Retry:   config.RetryConfig{Tries: 3, Delay: 10 * time.Millisecond},
				Rate:    config.RateConfig{Limit: 100},
			},
			"billing": {
				BaseURL: "https://billing.test",
			},
			"broken": {
				BaseURL: "not a url",
			},
		},
	}
}

func TestClientRequestAppliesServerConfig(t *testing.T) {
	rt := &recordingTransport{}
	client := NewClient(testHTTPConfig(), nil, WithTransport(rt))

	r, err := client.Request("main")
	require.NoError(t, err)

	assert.Equal(t, 3, r.Tries())
	assert.Equal(t, 10*time.Millisecond, r.RetryDelay())
	assert.Equal(t, 5*time.Second, r.Options().Timeout)
	assert.Equal(t, "application/vnd.main+json", r.Options().Headers.Get(HeaderAccept))
	require.NotNil(t, r.limiter)

	_, err = r.Get(context.Background(), "/users", nil)
	require.NoError(t, err)
	d := rt.last(t)
	assert.Equal(t, "https://main.test/v1/users", d.URL.String())
	assert.Equal(t, 5*time.Second, d.Timeout)
}

func TestClientRequestDefaultName(t *testing.T) {
	client := NewClient(testHTTPConfig(), nil, WithTransport(&recordingTransport{}))

	r, err := client.Request("")
	require.NoError(t, err)
	assert.Equal(t, "main", r.name)
	assert.Equal(t, []string{"main"}, client.Cached())
}

func TestClientRequestMissing(t *testing.T) {
	client := NewClient(testHTTPConfig(), nil)

	r, err := client.Request("missing")

	require.Error(t, err)
	assert.Nil(t, r)
	assert.True(t, IsErrorType(err, ConfigurationError))
	assert.True(t, config.IsNotConfigured(err))
	assert.Contains(t, err.Error(), "missing")
	assert.Empty(t, client.Cached())
}

func TestClientRequestWithoutDefault(t *testing.T) {
	client := NewClient(config.HTTPConfig{}, nil)

	_, err := client.Request("")

	assert.True(t, IsErrorType(err, ConfigurationError))
	assert.Empty(t, client.Cached())
}

func TestClientRequestInvalidServer(t *testing.T) {
	client := NewClient(testHTTPConfig(), nil)

	_, err := client.Request("broken")

	require.Error(t, err)
	assert.True(t, IsErrorType(err, ConfigurationError))
	assert.Empty(t, client.Cached())
}

func TestClientTemplateIsSingleton(t *testing.T) {
	client := NewClient(testHTTPConfig(), nil)

	first, err := client.Template("billing")
	require.NoError(t, err)
	second, err := client.Template("billing")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "billing", first.Name())
	assert.Equal(t, "https://billing.test", first.BaseURL())
	assert.Zero(t, first.Timeout())
}

func TestClientRequestsDoNotShareState(t *testing.T) {
	rt := &recordingTransport{}
	client := NewClient(testHTTPConfig(), nil, WithTransport(rt))

	first, err := client.Request("billing")
	require.NoError(t, err)
	first.WithToken("secret").Attach("file", "data", "a.txt", nil)

	second, err := client.Request("billing")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Empty(t, second.Options().Headers.Get(HeaderAuthorization))
	assert.Empty(t, second.pendingFiles)
	assert.Equal(t, BodyJSON, second.Format())
}

func TestClientConcurrentLookups(t *testing.T) {
	client := NewClient(testHTTPConfig(), nil)

	const workers = 32
	templates := make([]*Template, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tpl, err := client.Template("main")
			assert.NoError(t, err)
			templates[i] = tpl
		}(i)
	}
	wg.Wait()

	for _, tpl := range templates {
		assert.Same(t, templates[0], tpl)
	}
	assert.Equal(t, []string{"main"}, client.Cached())
}

func TestClientCreateDoesNotCache(t *testing.T) {
	rt := &recordingTransport{}
	client := NewClient(testHTTPConfig(), nil, WithTransport(rt))

	r := client.Create(config.ServerConfig{BaseURL: "https://adhoc.test", Timeout: time.Second})
	_, err := r.Get(context.Background(), "ping", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://adhoc.test/ping", rt.last(t).URL.String())
	assert.Equal(t, time.Second, rt.last(t).Timeout)
	assert.Empty(t, client.Cached())
}

func TestTemplateDefaults(t *testing.T) {
	tpl := NewTemplate("", config.ServerConfig{}, nil, nil)
	r := tpl.NewRequest()

	assert.Equal(t, DefaultTries, r.Tries())
	assert.Equal(t, DefaultRetryDelay, r.RetryDelay())
	assert.Nil(t, r.limiter)
	assert.Zero(t, r.Options().Timeout)
	assert.Equal(t, testJSONType, r.Options().Headers.Get(HeaderContentType))
}

func TestTemplateRateBurst(t *testing.T) {
	tpl := NewTemplate("rl", config.ServerConfig{Rate: config.RateConfig{Limit: 2.5}}, nil, nil)
	require.NotNil(t, tpl.limiter)
	assert.Equal(t, 3, tpl.limiter.Burst())

	tpl = NewTemplate("rl", config.ServerConfig{Rate: config.RateConfig{Limit: 0.2, Burst: 5}}, nil, nil)
	assert.Equal(t, 5, tpl.limiter.Burst())

	first := tpl.NewRequest()
	second := tpl.NewRequest()
	assert.Same(t, first.limiter, second.limiter)
}
