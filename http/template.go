package http

import (
	"math"
	nethttp "net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/fluent-http/config"
	"github.com/gaborage/fluent-http/logger"
)

// Template holds the immutable defaults of a named client. Each call to
// NewRequest hands out an independent Request seeded from them, so mutations
// made by one caller never reach another.
type Template struct {
	name       string
	baseURL    string
	timeout    time.Duration
	headers    nethttp.Header
	tries      int
	retryDelay time.Duration

	// limiter is shared by every Request created from the template
	limiter   *rate.Limiter
	transport Transport
	logger    logger.Logger
}

// NewTemplate builds a template from a server configuration. Zero-valued
// settings keep the Request defaults.
func NewTemplate(name string, server config.ServerConfig, log logger.Logger, transport Transport) *Template {
	if log == nil {
		log = logger.NewNop()
	}
	if transport == nil {
		transport = DefaultTransport()
	}

	t := &Template{
		name:       name,
		baseURL:    server.BaseURL,
		timeout:    server.Timeout,
		headers:    nethttp.Header{},
		tries:      DefaultTries,
		retryDelay: DefaultRetryDelay,
		transport:  transport,
		logger:     log,
	}
	for _, key := range sortedKeys(server.Headers) {
		t.headers.Add(key, server.Headers[key])
	}
	if server.Retry.Tries > 0 {
		t.tries = server.Retry.Tries
	}
	if server.Retry.Delay > 0 {
		t.retryDelay = server.Retry.Delay
	}
	if server.Rate.Limit > 0 {
		burst := server.Rate.Burst
		if burst <= 0 {
			burst = int(math.Max(1, math.Ceil(server.Rate.Limit)))
		}
		t.limiter = rate.NewLimiter(rate.Limit(server.Rate.Limit), burst)
	}
	if name != "" {
		t.logger = log.WithFields(map[string]any{"http_client": name})
	}
	return t
}

// Name returns the configuration name, empty for ad-hoc templates.
func (t *Template) Name() string {
	return t.name
}

// BaseURL returns the configured base URL.
func (t *Template) BaseURL() string {
	return t.baseURL
}

// Timeout returns the configured per-attempt timeout, zero when unset.
func (t *Template) Timeout() time.Duration {
	return t.timeout
}

// NewRequest returns a fresh Request carrying the template defaults.
func (t *Template) NewRequest() *Request {
	r := NewRequest(t.logger).WithTransport(t.transport)
	r.name = t.name
	r.limiter = t.limiter
	r.tries = t.tries
	r.retryDelay = t.retryDelay

	if t.baseURL != "" {
		r.BaseURL(t.baseURL)
	}
	if t.timeout > 0 {
		r.Timeout(t.timeout)
	}
	for key, values := range t.headers {
		// Configured headers replace the builder defaults such as Content-Type.
		r.options.Headers[key] = append([]string(nil), values...)
	}
	return r
}
