package http

import (
	"encoding/json"
	nethttp "net/http"
	"time"
)

// Response is an immutable snapshot of one completed attempt.
type Response struct {
	StatusCode int
	Headers    nethttp.Header
	Stats      Stats

	body    []byte
	cookies []*nethttp.Cookie
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	// Attempt is the 1-based attempt that produced this response
	Attempt int
}

// Body returns the raw response payload.
func (r *Response) Body() []byte {
	return r.body
}

// String returns the response payload as a string.
func (r *Response) String() string {
	return string(r.body)
}

// Status returns the HTTP status code.
func (r *Response) Status() int {
	return r.StatusCode
}

// Header returns the first value of the named response header.
func (r *Response) Header(key string) string {
	return r.Headers.Get(key)
}

// Cookies returns the request's cookie jar contents for the request URL, captured
// right after the attempt completed: cookies sent plus any the server set.
func (r *Response) Cookies() []*nethttp.Cookie {
	return r.cookies
}

// Cookie returns the named cookie from the snapshot, or nil.
func (r *Response) Cookie(name string) *nethttp.Cookie {
	for _, c := range r.cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Decode unmarshals a JSON payload into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return NewValidationError("failed to decode response body", "body", err)
	}
	return nil
}

// Successful reports a 2xx status.
func (r *Response) Successful() bool {
	return IsSuccessStatus(r.StatusCode)
}

// Failed reports a 4xx or 5xx status.
func (r *Response) Failed() bool {
	return r.ClientError() || r.ServerError()
}

// ClientError reports a 4xx status.
func (r *Response) ClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// ServerError reports a 5xx status.
func (r *Response) ServerError() bool {
	return r.StatusCode >= 500
}

// Throw returns a *ResponseError carrying r when the status is not 2xx, nil otherwise.
func (r *Response) Throw() error {
	if r.Successful() {
		return nil
	}
	return NewResponseError(r)
}
