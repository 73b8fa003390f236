package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	nethttp "net/http"
	"net/url"
	"sync"
	"time"

	"github.com/icholy/digest"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Dispatch is one fully composed request handed to a Transport. The body is
// already encoded so it can be replayed on every attempt.
type Dispatch struct {
	Method             string
	URL                *url.URL
	Header             nethttp.Header
	Body               []byte
	Auth               *Auth
	Jar                nethttp.CookieJar
	FollowRedirects    bool
	InsecureSkipVerify bool
	Timeout            time.Duration
	Proxy              string
	Extra              map[string]any
}

// Transport performs a single HTTP exchange. Any received status, including
// 4xx and 5xx, is a response; errors are reserved for failures to complete
// the exchange.
type Transport interface {
	Do(ctx context.Context, d *Dispatch) (*nethttp.Response, error)
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(ctx context.Context, d *Dispatch) (*nethttp.Response, error)

// Do calls f(ctx, d)
func (f TransportFunc) Do(ctx context.Context, d *Dispatch) (*nethttp.Response, error) {
	return f(ctx, d)
}

// EngineTransport is the default Transport built on net/http. Connection pools
// are shared between dispatches with the same proxy and TLS settings.
type EngineTransport struct {
	base    *nethttp.Transport
	tracing bool

	mu       sync.Mutex
	variants map[string]*nethttp.Transport
}

// EngineOption configures an EngineTransport
type EngineOption func(*EngineTransport)

// WithBaseTransport replaces the pooled net/http transport used for dispatches
func WithBaseTransport(t *nethttp.Transport) EngineOption {
	return func(e *EngineTransport) {
		if t != nil {
			e.base = t
		}
	}
}

// WithTracing toggles OpenTelemetry client spans around each exchange (default on)
func WithTracing(enabled bool) EngineOption {
	return func(e *EngineTransport) {
		e.tracing = enabled
	}
}

// NewEngineTransport creates the default net/http backed transport
func NewEngineTransport(opts ...EngineOption) *EngineTransport {
	base, ok := nethttp.DefaultTransport.(*nethttp.Transport)
	if !ok {
		base = &nethttp.Transport{Proxy: nethttp.ProxyFromEnvironment}
	}
	e := &EngineTransport{
		base:     base.Clone(),
		tracing:  true,
		variants: make(map[string]*nethttp.Transport),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do sends d through a net/http client configured from the dispatch options.
func (e *EngineTransport) Do(ctx context.Context, d *Dispatch) (*nethttp.Response, error) {
	rt, err := e.roundTripper(d)
	if err != nil {
		return nil, err
	}

	client := &nethttp.Client{
		Transport: rt,
		Jar:       d.Jar,
		Timeout:   d.Timeout,
	}
	if !d.FollowRedirects {
		client.CheckRedirect = func(*nethttp.Request, []*nethttp.Request) error {
			return nethttp.ErrUseLastResponse
		}
	}

	req, err := nethttp.NewRequestWithContext(ctx, d.Method, d.URL.String(), bytes.NewReader(d.Body))
	if err != nil {
		return nil, NewValidationError("failed to create HTTP request", "url", err)
	}
	if len(d.Body) == 0 {
		req.Body = nethttp.NoBody
		req.GetBody = nil
		req.ContentLength = 0
	}
	req.Header = d.Header.Clone()
	if req.Header == nil {
		req.Header = nethttp.Header{}
	}
	if d.Auth != nil && d.Auth.Scheme != AuthDigest {
		req.SetBasicAuth(d.Auth.Username, d.Auth.Password)
	}

	return client.Do(req)
}

func (e *EngineTransport) roundTripper(d *Dispatch) (nethttp.RoundTripper, error) {
	base, err := e.variant(d.Proxy, d.InsecureSkipVerify)
	if err != nil {
		return nil, err
	}

	var rt nethttp.RoundTripper = base
	if d.Auth != nil && d.Auth.Scheme == AuthDigest {
		rt = &digest.Transport{
			Username:  d.Auth.Username,
			Password:  d.Auth.Password,
			Transport: rt,
		}
	}
	if e.tracing {
		rt = otelhttp.NewTransport(rt)
	}
	return rt, nil
}

// variant returns a pooled transport for the proxy/TLS combination.
func (e *EngineTransport) variant(proxy string, insecure bool) (*nethttp.Transport, error) {
	if proxy == "" && !insecure {
		return e.base, nil
	}

	key := fmt.Sprintf("%s|%t", proxy, insecure)
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.variants[key]; ok {
		return t, nil
	}

	t := e.base.Clone()
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, NewValidationError("invalid proxy url", "proxy", err)
		}
		t.Proxy = nethttp.ProxyURL(proxyURL)
	}
	if insecure {
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		t.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // requested via WithoutVerifying
	}
	e.variants[key] = t
	return t, nil
}
