package http

import (
	"context"
	"io"
	nethttp "net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testBaseURL   = "https://api.test"
	testJSONType  = "application/json"
	testFormType  = "application/x-www-form-urlencoded"
	testHeaderKey = "X-A"
)

// recordingTransport answers every dispatch from a script of statuses and
// remembers what it received.
type recordingTransport struct {
	mu         sync.Mutex
	dispatches []*Dispatch
	statuses   []int
	err        error
	failFirst  int
	setCookie  string
}

func (rt *recordingTransport) Do(_ context.Context, d *Dispatch) (*nethttp.Response, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.dispatches = append(rt.dispatches, d)
	call := len(rt.dispatches)
	if rt.err != nil && call <= rt.failFirst {
		return nil, rt.err
	}

	status := nethttp.StatusOK
	if idx := call - 1; idx < len(rt.statuses) {
		status = rt.statuses[idx]
	} else if len(rt.statuses) > 0 {
		status = rt.statuses[len(rt.statuses)-1]
	}

	header := nethttp.Header{}
	if rt.setCookie != "" {
		header.Add("Set-Cookie", rt.setCookie)
	}
	return &nethttp.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(nethttp.StatusText(status))),
		Request:    &nethttp.Request{URL: d.URL},
	}, nil
}

func (rt *recordingTransport) calls() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.dispatches)
}

func (rt *recordingTransport) last(t *testing.T) *Dispatch {
	t.Helper()
	rt.mu.Lock()
	defer rt.mu.Unlock()
	require.NotEmpty(t, rt.dispatches)
	return rt.dispatches[len(rt.dispatches)-1]
}

func newTestRequest(rt Transport) *Request {
	return NewRequest(nil).WithTransport(rt).BaseURL(testBaseURL)
}

// recordSleeps replaces the retry sleep for the duration of the test.
func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var mu sync.Mutex
	sleeps := []time.Duration{}
	original := sleepContext
	sleepContext = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()
		return original(ctx, d)
	}
	t.Cleanup(func() { sleepContext = original })
	return &sleeps
}
