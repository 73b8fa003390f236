package http

import (
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/gaborage/fluent-http/config"
	"github.com/gaborage/fluent-http/logger"
)

// Client resolves named server configurations to request templates. Templates
// are created on first lookup and cached for the lifetime of the Client.
// Concurrent first lookups of the same name share one creation.
type Client struct {
	cfg       config.HTTPConfig
	logger    logger.Logger
	transport Transport

	mu        sync.RWMutex
	templates map[string]*Template
	sfg       singleflight.Group
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithTransport sets the transport shared by every template of the client.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// NewClient creates a registry over cfg.
func NewClient(cfg config.HTTPConfig, log logger.Logger, opts ...ClientOption) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	c := &Client{
		cfg:       cfg,
		logger:    log,
		transport: DefaultTransport(),
		templates: make(map[string]*Template),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request returns a fresh Request for the named server. An empty name selects
// the configured default. Unknown names fail with a ConfigurationError and
// nothing is cached.
func (c *Client) Request(name string) (*Request, error) {
	t, err := c.Template(name)
	if err != nil {
		return nil, err
	}
	return t.NewRequest(), nil
}

// Template returns the cached template for name, creating it on first use.
func (c *Client) Template(name string) (*Template, error) {
	resolved := c.cfg.ResolveName(name)

	c.mu.RLock()
	t, ok := c.templates[resolved]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}

	v, err, _ := c.sfg.Do(resolved, func() (any, error) {
		c.mu.RLock()
		existing, found := c.templates[resolved]
		c.mu.RUnlock()
		if found {
			return existing, nil
		}

		server, err := c.cfg.Server(resolved)
		if err != nil {
			return nil, NewConfigurationError(resolved, err)
		}
		if err := config.ValidateServer(resolved, server); err != nil {
			return nil, NewConfigurationError(resolved, err)
		}

		created := NewTemplate(resolved, server, c.logger, c.transport)

		c.mu.Lock()
		c.templates[resolved] = created
		c.mu.Unlock()

		c.logger.Debug().
			Str("http_client", resolved).
			Str("base_url", server.BaseURL).
			Msg("Created HTTP client template")
		return created, nil
	})
	if err != nil {
		c.logger.Error().Err(err).Str("http_client", resolved).Msg("HTTP client not available")
		return nil, err
	}
	return v.(*Template), nil
}

// Create builds an uncached Request from server, applying its base URL and
// timeout when set.
func (c *Client) Create(server config.ServerConfig) *Request {
	return NewTemplate("", server, c.logger, c.transport).NewRequest()
}

// Cached returns the names of the templates created so far, sorted.
func (c *Client) Cached() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
