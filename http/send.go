package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gaborage/fluent-http/trace"
)

// JoinURL joins base and path with exactly one slash. Surrounding slashes are
// trimmed, so two empty inputs give an empty result.
func JoinURL(base, path string) string {
	return strings.TrimLeft(strings.TrimRight(base, "/")+"/"+strings.TrimLeft(path, "/"), "/")
}

// Send composes the pending configuration with call and dispatches it under the
// retry policy. Pending body and files are cleared before dispatch whatever the
// outcome. When the attempts end on a non-success status, the failed response
// is returned together with the *ResponseError.
func (r *Request) Send(ctx context.Context, method, rawURL string, call CallOptions) (*Response, error) {
	target := JoinURL(r.baseURL, rawURL)
	format := r.bodyFormat
	body, files := r.pendingBody, r.pendingFiles
	r.pendingBody, r.pendingFiles = nil, nil

	d, err := r.buildDispatch(ctx, strings.ToUpper(method), target, format, call, body, files)
	if err != nil {
		r.logger.Error().Err(err).Str("method", method).Str("url", target).Msg("Failed to build HTTP request")
		return nil, err
	}

	policy := retryPolicy{
		times: r.tries,
		sleep: r.retryDelay,
		when:  r.shouldRetry,
		onRetry: func(attempt, remaining int, err error) {
			recordRetry(ctx, r.name, d, err)
			r.logger.Warn().
				Err(err).
				Str("method", d.Method).
				Str("url", d.URL.Redacted()).
				Int("attempt", attempt).
				Int("remaining", remaining).
				Dur("delay", r.retryDelay).
				Msg("Retrying HTTP request")
		},
	}

	resp, err := policy.run(ctx, func(attempt int) (*Response, error) {
		return r.attempt(ctx, d, attempt)
	})
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("method", d.Method).
			Str("url", d.URL.Redacted()).
			Int("tries", r.tries).
			Msg("HTTP request failed")
		return resp, err
	}
	return resp, nil
}

func (r *Request) shouldRetry(err error) bool {
	if IsErrorType(err, ValidationError) {
		return false
	}
	return r.retryWhen == nil || r.retryWhen(err)
}

// buildDispatch resolves the URL, merges query values and encodes the body once
// so every attempt replays the same bytes.
func (r *Request) buildDispatch(ctx context.Context, method, target string, format BodyFormat, call CallOptions, body []byte, files []FilePart) (*Dispatch, error) {
	if target == "" {
		return nil, NewValidationError("request url is empty", "url", nil)
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, NewValidationError("invalid request url", "url", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, NewValidationError(fmt.Sprintf("request url %q is not absolute", target), "url", nil)
	}
	if err := r.mergeQuery(u, call.Query); err != nil {
		return nil, err
	}

	header := r.options.Headers.Clone()
	if header == nil {
		header = nethttp.Header{}
	}

	d := &Dispatch{
		Method:             method,
		URL:                u,
		Header:             header,
		Auth:               r.options.Auth,
		Jar:                r.jar,
		FollowRedirects:    r.options.followRedirects(),
		InsecureSkipVerify: r.options.insecureSkipVerify(),
		Timeout:            r.options.Timeout,
		Proxy:              r.options.Proxy,
		Extra:              r.options.Extra,
	}

	if call.HasData {
		if err := encodeBody(d, format, call.Data, body, files); err != nil {
			return nil, err
		}
	}

	if len(r.hostCookies) > 0 {
		r.jar.SetCookies(&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, hostScoped(r.hostCookies))
		r.hostCookies = nil
	}

	trace.ApplyHeaders(ctx, d.Header)
	return d, nil
}

func (r *Request) mergeQuery(u *url.URL, callQuery any) error {
	extra, err := toValues(callQuery, "query")
	if err != nil {
		return err
	}
	if len(r.options.Query) == 0 && len(extra) == 0 {
		return nil
	}

	q := u.Query()
	for key, values := range r.options.Query {
		q[key] = append(q[key], values...)
	}
	for key, values := range extra {
		q[key] = append(q[key], values...)
	}
	u.RawQuery = q.Encode()
	return nil
}

// encodeBody serializes the call data for the active format. Multipart payloads
// get the queued file parts appended; raw payloads use the queued body instead
// of the call data.
func encodeBody(d *Dispatch, format BodyFormat, data any, body []byte, files []FilePart) error {
	switch format {
	case BodyMultipart:
		parts, err := normalizeMultipart(data)
		if err != nil {
			return err
		}
		parts = append(parts, files...)
		encoded, contentType, err := encodeMultipart(parts)
		if err != nil {
			return err
		}
		d.Body = encoded
		d.Header.Set(HeaderContentType, contentType)
	case BodyRaw:
		d.Body = body
	case BodyForm:
		encoded, err := encodeForm(data)
		if err != nil {
			return err
		}
		d.Body = encoded
	default:
		encoded, err := encodeJSON(data)
		if err != nil {
			return err
		}
		d.Body = encoded
	}
	return nil
}

func hostScoped(cookies []*nethttp.Cookie) []*nethttp.Cookie {
	out := make([]*nethttp.Cookie, len(cookies))
	for i, c := range cookies {
		cc := *c
		cc.Domain = ""
		out[i] = &cc
	}
	return out
}

// attempt performs one dispatch. Transport failures become connection errors.
// With more than one try configured a non-success status is returned as an
// error so the retry loop sees it.
func (r *Request) attempt(ctx context.Context, d *Dispatch, attempt int) (*Response, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, NewConnectionError("rate limiter wait aborted", err)
		}
	}

	r.logger.Debug().
		Str("direction", "outbound").
		Str("method", d.Method).
		Str("url", d.URL.Redacted()).
		Int("attempt", attempt).
		Interface("headers", d.Header).
		Int("body_bytes", len(d.Body)).
		Msg("Sending HTTP request")

	start := time.Now()
	raw, err := r.transport.Do(ctx, d)
	elapsed := time.Since(start)
	if err != nil {
		var clientErr ClientError
		if !errors.As(err, &clientErr) {
			err = NewConnectionError(fmt.Sprintf("%s %s", d.Method, d.URL.Redacted()), err)
		}
		recordAttempt(ctx, r.name, d, 0, elapsed, err)
		return nil, err
	}

	var payload []byte
	if raw.Body != nil {
		payload, err = io.ReadAll(raw.Body)
		_ = raw.Body.Close()
		if err != nil {
			err = NewConnectionError("failed to read response body", err)
			recordAttempt(ctx, r.name, d, 0, time.Since(start), err)
			return nil, err
		}
		elapsed = time.Since(start)
	}

	// Transports that bypass the jar still get their Set-Cookie headers stored.
	if cookies := raw.Cookies(); len(cookies) > 0 {
		responseURL := d.URL
		if raw.Request != nil && raw.Request.URL != nil {
			responseURL = raw.Request.URL
		}
		r.jar.SetCookies(responseURL, cookies)
	}

	resp := &Response{
		StatusCode: raw.StatusCode,
		Headers:    raw.Header,
		Stats:      Stats{ElapsedTime: elapsed, Attempt: attempt},
		body:       payload,
		cookies:    r.jar.Cookies(d.URL),
	}
	if resp.Headers == nil {
		resp.Headers = nethttp.Header{}
	}
	recordAttempt(ctx, r.name, d, resp.StatusCode, elapsed, nil)

	r.logger.Debug().
		Str("direction", "inbound").
		Str("method", d.Method).
		Str("url", d.URL.Redacted()).
		Int("status", resp.StatusCode).
		Int("attempt", attempt).
		Dur("elapsed", elapsed).
		Int("body_bytes", len(payload)).
		Msg("Received HTTP response")

	if r.tries > 1 && !resp.Successful() {
		return resp, NewResponseError(resp)
	}
	return resp, nil
}
