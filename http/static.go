package http

import (
	"context"
	"sync"
	"time"

	"github.com/gaborage/fluent-http/config"
	"github.com/gaborage/fluent-http/logger"
)

var (
	defaultsMu       sync.RWMutex
	defaultLogger    logger.Logger
	defaultTransport Transport
)

// SetDefaultLogger sets the logger used by New and the package-level helpers.
func SetDefaultLogger(l logger.Logger) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	defaultLogger = l
}

// SetDefaultTransport sets the transport used by requests that are not given one.
// Nil restores the net/http engine.
func SetDefaultTransport(t Transport) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	defaultTransport = t
}

// DefaultTransport returns the package default transport, creating the net/http
// engine on first use.
func DefaultTransport() Transport {
	defaultsMu.RLock()
	t := defaultTransport
	defaultsMu.RUnlock()
	if t != nil {
		return t
	}

	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	if defaultTransport == nil {
		defaultTransport = NewEngineTransport()
	}
	return defaultTransport
}

func defaultLog() logger.Logger {
	defaultsMu.RLock()
	defer defaultsMu.RUnlock()
	if defaultLogger == nil {
		return logger.NewNop()
	}
	return defaultLogger
}

// New returns a fresh Request with the package defaults.
func New() *Request {
	return NewRequest(defaultLog())
}

// Create builds a fresh Request from server with the package defaults.
func Create(server config.ServerConfig) *Request {
	return NewTemplate("", server, defaultLog(), DefaultTransport()).NewRequest()
}

// Get issues a one-shot GET request.
func Get(ctx context.Context, rawURL string, query any) (*Response, error) {
	return New().Get(ctx, rawURL, query)
}

// Head issues a one-shot HEAD request.
func Head(ctx context.Context, rawURL string, query any) (*Response, error) {
	return New().Head(ctx, rawURL, query)
}

// Post issues a one-shot JSON POST request.
func Post(ctx context.Context, rawURL string, data any) (*Response, error) {
	return New().Post(ctx, rawURL, data)
}

// Put issues a one-shot JSON PUT request.
func Put(ctx context.Context, rawURL string, data any) (*Response, error) {
	return New().Put(ctx, rawURL, data)
}

// Patch issues a one-shot JSON PATCH request.
func Patch(ctx context.Context, rawURL string, data any) (*Response, error) {
	return New().Patch(ctx, rawURL, data)
}

// Delete issues a one-shot DELETE request.
func Delete(ctx context.Context, rawURL string, data any) (*Response, error) {
	return New().Delete(ctx, rawURL, data)
}

// Send issues a one-shot request.
func Send(ctx context.Context, method, rawURL string, call CallOptions) (*Response, error) {
	return New().Send(ctx, method, rawURL, call)
}

func BaseURL(baseURL string) *Request {
	return New().BaseURL(baseURL)
}

func WithHeaders(headers map[string]string) *Request {
	return New().WithHeaders(headers)
}

func WithToken(token string, tokenType ...string) *Request {
	return New().WithToken(token, tokenType...)
}

func WithBasicAuth(username, password string) *Request {
	return New().WithBasicAuth(username, password)
}

func WithDigestAuth(username, password string) *Request {
	return New().WithDigestAuth(username, password)
}

func WithCookies(cookies map[string]string, domain string) *Request {
	return New().WithCookies(cookies, domain)
}

func AsForm() *Request {
	return New().AsForm()
}

func AsMultipart() *Request {
	return New().AsMultipart()
}

func Attach(name string, contents any, filename string, headers map[string]string) *Request {
	return New().Attach(name, contents, filename, headers)
}

func WithBody(content []byte, contentType string) *Request {
	return New().WithBody(content, contentType)
}

func Timeout(d time.Duration) *Request {
	return New().Timeout(d)
}

func Retry(times int, sleep time.Duration) *Request {
	return New().Retry(times, sleep)
}

func WithOptions(opts Options) *Request {
	return New().WithOptions(opts)
}

func AcceptJSON() *Request {
	return New().AcceptJSON()
}
