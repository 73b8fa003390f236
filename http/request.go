package http

import (
	"context"
	nethttp "net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/gaborage/fluent-http/logger"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderUserAgent     = "User-Agent"
)

// Request accumulates the configuration of one pending request through chained
// calls and dispatches it with one of the verb methods. Every mutator returns
// the same *Request. A Request is meant for one caller at a time.
type Request struct {
	name       string
	baseURL    string
	bodyFormat BodyFormat

	// pendingBody and pendingFiles are consumed and cleared by every send
	pendingBody  []byte
	pendingFiles []FilePart
	hostCookies  []*nethttp.Cookie

	options    Options
	jar        *cookiejar.Jar
	tries      int
	retryDelay time.Duration
	retryWhen  func(error) bool

	transport Transport
	logger    logger.Logger
	limiter   *rate.Limiter
}

// CallOptions is the per-call fragment a verb hands to Send.
type CallOptions struct {
	// Query is merged into the URL query string (url.Values, maps, a raw query or a tagged struct)
	Query any
	// Data is serialized according to the active body format when HasData is set
	Data    any
	HasData bool
}

// NewRequest creates a Request using the package default transport. A nil
// logger discards output.
func NewRequest(log logger.Logger) *Request {
	if log == nil {
		log = logger.NewNop()
	}
	r := &Request{
		options:    Options{Headers: nethttp.Header{}},
		jar:        newJar(),
		tries:      DefaultTries,
		retryDelay: DefaultRetryDelay,
		transport:  DefaultTransport(),
		logger:     log,
	}
	return r.AsJSON()
}

func newJar() *cookiejar.Jar {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		// cookiejar.New never fails for a non-nil options value
		panic(err)
	}
	return jar
}

// BaseURL sets the prefix joined with every request path. It is not validated.
func (r *Request) BaseURL(baseURL string) *Request {
	r.baseURL = baseURL
	return r
}

// WithBody sends content unchanged with the given content type.
func (r *Request) WithBody(content []byte, contentType string) *Request {
	r.BodyFormat(BodyRaw)
	r.pendingBody = content
	return r.ContentType(contentType)
}

// AsJSON encodes request data as JSON.
func (r *Request) AsJSON() *Request {
	return r.BodyFormat(BodyJSON).ContentType(ContentTypeJSON)
}

// AsForm encodes request data as application/x-www-form-urlencoded.
func (r *Request) AsForm() *Request {
	return r.BodyFormat(BodyForm).ContentType(ContentTypeForm)
}

// AsMultipart encodes request data as multipart/form-data. The Content-Type
// header, boundary included, is set when the body is built.
func (r *Request) AsMultipart() *Request {
	r.options.Headers.Del(HeaderContentType)
	return r.BodyFormat(BodyMultipart)
}

// BodyFormat selects the body format without touching headers.
func (r *Request) BodyFormat(format BodyFormat) *Request {
	r.bodyFormat = format
	return r
}

// ContentType replaces the Content-Type header.
func (r *Request) ContentType(contentType string) *Request {
	r.options.Headers.Set(HeaderContentType, contentType)
	return r
}

// Accept replaces the Accept header.
func (r *Request) Accept(contentType string) *Request {
	r.options.Headers.Set(HeaderAccept, contentType)
	return r
}

// AcceptJSON asks for a JSON response.
func (r *Request) AcceptJSON() *Request {
	return r.Accept(ContentTypeJSON)
}

// Attach switches to multipart mode and queues one file part for the next send.
func (r *Request) Attach(name string, contents any, filename string, headers map[string]string) *Request {
	r.AsMultipart()
	part := FilePart{Name: name, Contents: contents, Filename: filename}
	if len(headers) > 0 {
		part.Headers = headers
	}
	r.pendingFiles = append(r.pendingFiles, part)
	return r
}

// WithHeaders adds the given values to the existing headers.
func (r *Request) WithHeaders(headers map[string]string) *Request {
	h := nethttp.Header{}
	for k, v := range headers {
		h.Add(k, v)
	}
	r.options.Merge(Options{Headers: h})
	return r
}

// WithHeader adds one header value.
func (r *Request) WithHeader(key, value string) *Request {
	r.options.Headers.Add(key, value)
	return r
}

// WithUserAgent replaces the User-Agent header.
func (r *Request) WithUserAgent(userAgent string) *Request {
	r.options.Headers.Set(HeaderUserAgent, userAgent)
	return r
}

// WithBasicAuth authenticates with HTTP basic credentials.
func (r *Request) WithBasicAuth(username, password string) *Request {
	r.options.Merge(Options{Auth: &Auth{Username: username, Password: password, Scheme: AuthBasic}})
	return r
}

// WithDigestAuth authenticates with HTTP digest credentials.
func (r *Request) WithDigestAuth(username, password string) *Request {
	r.options.Merge(Options{Auth: &Auth{Username: username, Password: password, Scheme: AuthDigest}})
	return r
}

// WithToken sets the Authorization header to "<type> <token>", replacing any
// previous value. The type defaults to Bearer.
func (r *Request) WithToken(token string, tokenType ...string) *Request {
	typ := "Bearer"
	if len(tokenType) > 0 {
		typ = tokenType[0]
	}
	r.options.Headers.Set(HeaderAuthorization, strings.TrimSpace(typ+" "+token))
	return r
}

// WithCookies stores the given cookies in the request's jar, scoped to domain.
// With an empty domain the cookies are scoped to the host of the next request.
func (r *Request) WithCookies(cookies map[string]string, domain string) *Request {
	domain = strings.TrimPrefix(domain, ".")
	list := make([]*nethttp.Cookie, 0, len(cookies))
	for _, name := range sortedKeys(cookies) {
		list = append(list, &nethttp.Cookie{Name: name, Value: cookies[name], Path: "/", Domain: domain})
	}
	if domain == "" {
		r.hostCookies = append(r.hostCookies, list...)
		return r
	}
	r.jar.SetCookies(&url.URL{Scheme: "https", Host: domain, Path: "/"}, list)
	return r
}

// WithoutRedirecting returns 3xx responses instead of following them.
func (r *Request) WithoutRedirecting() *Request {
	r.options.Merge(Options{FollowRedirects: boolPtr(false)})
	return r
}

// WithoutVerifying disables TLS certificate verification.
func (r *Request) WithoutVerifying() *Request {
	r.options.Merge(Options{InsecureSkipVerify: boolPtr(true)})
	return r
}

// Timeout bounds each attempt.
func (r *Request) Timeout(d time.Duration) *Request {
	r.options.Merge(Options{Timeout: d})
	return r
}

// WithProxy routes requests through the given proxy URL.
func (r *Request) WithProxy(proxyURL string) *Request {
	r.options.Merge(Options{Proxy: proxyURL})
	return r
}

// WithQuery adds query values sent with every request from this builder.
func (r *Request) WithQuery(values url.Values) *Request {
	r.options.Merge(Options{Query: values})
	return r
}

// Retry sets the total number of attempts (the first one included) and the
// delay before each retry.
func (r *Request) Retry(times int, sleep time.Duration) *Request {
	if times < 1 {
		times = 1
	}
	if sleep < 0 {
		sleep = 0
	}
	r.tries = times
	r.retryDelay = sleep
	return r
}

// RetryWhen installs a predicate that may veto a retry for a given error.
// Validation errors are never retried.
func (r *Request) RetryWhen(when func(error) bool) *Request {
	r.retryWhen = when
	return r
}

// WithOptions merges opts into the accumulated options.
func (r *Request) WithOptions(opts Options) *Request {
	r.options.Merge(opts)
	return r
}

// WithTransport replaces the transport used for dispatch.
func (r *Request) WithTransport(t Transport) *Request {
	if t != nil {
		r.transport = t
	}
	return r
}

// WithLimiter throttles attempts through limiter. Nil disables throttling.
func (r *Request) WithLimiter(limiter *rate.Limiter) *Request {
	r.limiter = limiter
	return r
}

// Options returns a copy of the accumulated options.
func (r *Request) Options() Options {
	return r.options.Clone()
}

// Format returns the active body format.
func (r *Request) Format() BodyFormat {
	return r.bodyFormat
}

// Tries returns the configured total number of attempts.
func (r *Request) Tries() int {
	return r.tries
}

// RetryDelay returns the delay before each retry.
func (r *Request) RetryDelay() time.Duration {
	return r.retryDelay
}

// Jar exposes the request's cookie jar.
func (r *Request) Jar() nethttp.CookieJar {
	return r.jar
}

// Get issues a GET request. query may be nil.
func (r *Request) Get(ctx context.Context, rawURL string, query any) (*Response, error) {
	return r.Send(ctx, nethttp.MethodGet, rawURL, CallOptions{Query: query})
}

// Head issues a HEAD request. query may be nil.
func (r *Request) Head(ctx context.Context, rawURL string, query any) (*Response, error) {
	return r.Send(ctx, nethttp.MethodHead, rawURL, CallOptions{Query: query})
}

// Post issues a POST request with data encoded in the active body format.
func (r *Request) Post(ctx context.Context, rawURL string, data any) (*Response, error) {
	return r.Send(ctx, nethttp.MethodPost, rawURL, CallOptions{Data: data, HasData: true})
}

// Put issues a PUT request with data encoded in the active body format.
func (r *Request) Put(ctx context.Context, rawURL string, data any) (*Response, error) {
	return r.Send(ctx, nethttp.MethodPut, rawURL, CallOptions{Data: data, HasData: true})
}

// Patch issues a PATCH request with data encoded in the active body format.
func (r *Request) Patch(ctx context.Context, rawURL string, data any) (*Response, error) {
	return r.Send(ctx, nethttp.MethodPatch, rawURL, CallOptions{Data: data, HasData: true})
}

// Delete issues a DELETE request. Empty data sends no body at all.
func (r *Request) Delete(ctx context.Context, rawURL string, data any) (*Response, error) {
	return r.Send(ctx, nethttp.MethodDelete, rawURL, CallOptions{Data: data, HasData: !isEmptyData(data)})
}
