package http

import (
	nethttp "net/http"
	"net/url"
	"time"
)

// AuthScheme selects how credentials are presented to the server
type AuthScheme string

const (
	AuthBasic  AuthScheme = "basic"
	AuthDigest AuthScheme = "digest"
)

// Auth contains authentication credentials
type Auth struct {
	Username string
	Password string
	Scheme   AuthScheme
}

// Options carries the transport options accumulated by a Request.
// Merge rules per field:
//   - Headers, Query: values are appended per key
//   - Auth, Timeout, Proxy, FollowRedirects, InsecureSkipVerify: last writer wins (zero values are ignored)
//   - Extra: maps merge recursively, slices append, scalars are overwritten
type Options struct {
	Headers            nethttp.Header
	Query              url.Values
	Auth               *Auth
	FollowRedirects    *bool
	InsecureSkipVerify *bool
	Timeout            time.Duration
	Proxy              string
	// Extra holds transport-specific options a custom Transport may read
	Extra map[string]any
}

// Merge folds other into o following the per-field rules.
func (o *Options) Merge(other Options) {
	if o.Headers == nil {
		o.Headers = nethttp.Header{}
	}
	for key, values := range other.Headers {
		for _, v := range values {
			o.Headers.Add(key, v)
		}
	}

	if len(other.Query) > 0 {
		if o.Query == nil {
			o.Query = url.Values{}
		}
		for key, values := range other.Query {
			o.Query[key] = append(o.Query[key], values...)
		}
	}

	if other.Auth != nil {
		auth := *other.Auth
		o.Auth = &auth
	}
	if other.FollowRedirects != nil {
		o.FollowRedirects = boolPtr(*other.FollowRedirects)
	}
	if other.InsecureSkipVerify != nil {
		o.InsecureSkipVerify = boolPtr(*other.InsecureSkipVerify)
	}
	if other.Timeout > 0 {
		o.Timeout = other.Timeout
	}
	if other.Proxy != "" {
		o.Proxy = other.Proxy
	}
	if len(other.Extra) > 0 {
		o.Extra = mergeExtra(o.Extra, other.Extra)
	}
}

// Clone returns a deep copy of o.
func (o Options) Clone() Options {
	c := Options{
		Headers: o.Headers.Clone(),
		Timeout: o.Timeout,
		Proxy:   o.Proxy,
	}
	if c.Headers == nil {
		c.Headers = nethttp.Header{}
	}
	if o.Query != nil {
		c.Query = url.Values{}
		for k, v := range o.Query {
			c.Query[k] = append([]string(nil), v...)
		}
	}
	if o.Auth != nil {
		auth := *o.Auth
		c.Auth = &auth
	}
	if o.FollowRedirects != nil {
		c.FollowRedirects = boolPtr(*o.FollowRedirects)
	}
	if o.InsecureSkipVerify != nil {
		c.InsecureSkipVerify = boolPtr(*o.InsecureSkipVerify)
	}
	if o.Extra != nil {
		c.Extra = mergeExtra(nil, o.Extra)
	}
	return c
}

func (o *Options) followRedirects() bool {
	return o.FollowRedirects == nil || *o.FollowRedirects
}

func (o *Options) insecureSkipVerify() bool {
	return o.InsecureSkipVerify != nil && *o.InsecureSkipVerify
}

// mergeExtra merges src into dst and returns dst. Nested maps recurse, []any
// values append and anything else is overwritten by src.
func mergeExtra(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for key, sv := range src {
		dv, exists := dst[key]
		if !exists {
			dst[key] = copyExtraValue(sv)
			continue
		}

		switch s := sv.(type) {
		case map[string]any:
			if d, ok := dv.(map[string]any); ok {
				dst[key] = mergeExtra(d, s)
				continue
			}
		case []any:
			if d, ok := dv.([]any); ok {
				dst[key] = append(append([]any(nil), d...), s...)
				continue
			}
		}
		dst[key] = copyExtraValue(sv)
	}
	return dst
}

func copyExtraValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return mergeExtra(nil, t)
	case []any:
		return append([]any(nil), t...)
	default:
		return v
	}
}

func boolPtr(b bool) *bool {
	return &b
}
