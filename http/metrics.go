package http

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "fluent-http"

	// Metric names following OpenTelemetry HTTP client semantic conventions
	metricRequestDuration = "http.client.request.duration" // Histogram in seconds, one point per attempt
	metricRetries         = "http.client.retries"          // Counter of scheduled retries

	attrMethod     = "http.request.method"
	attrStatusCode = "http.response.status_code"
	attrServer     = "server.address"
	attrErrorType  = "error.type"
	attrClientName = "http.client.name"
)

var (
	meterMu         sync.Mutex
	meterInited     bool
	requestDuration metric.Float64Histogram
	retryCounter    metric.Int64Counter
)

func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize http metric %s: %v\n", metricName, err)
	}
}

// ensureMeter creates the instruments from the global meter provider once.
func ensureMeter() {
	meterMu.Lock()
	defer meterMu.Unlock()

	if meterInited {
		return
	}
	meter := otel.Meter(meterName)

	var err error
	requestDuration, err = meter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("Duration of outbound HTTP request attempts"),
		metric.WithUnit("s"),
	)
	logMetricError(metricRequestDuration, err)

	retryCounter, err = meter.Int64Counter(
		metricRetries,
		metric.WithDescription("Number of retries scheduled after a failed attempt"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(metricRetries, err)

	meterInited = true
}

// recordAttempt records one attempt. status is 0 when no response arrived.
func recordAttempt(ctx context.Context, clientName string, d *Dispatch, status int, duration time.Duration, err error) {
	ensureMeter()
	if requestDuration == nil {
		return
	}

	attrs := baseAttributes(clientName, d)
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrStatusCode, status))
	}
	if errType := classifyError(status, err); errType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errType))
	}

	requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// recordRetry counts a retry scheduled after a failed attempt.
func recordRetry(ctx context.Context, clientName string, d *Dispatch, err error) {
	ensureMeter()
	if retryCounter == nil {
		return
	}

	attrs := baseAttributes(clientName, d)
	if errType := classifyError(0, err); errType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errType))
	}
	retryCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func baseAttributes(clientName string, d *Dispatch) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, d.Method),
		attribute.String(attrServer, d.URL.Hostname()),
	}
	if clientName != "" {
		attrs = append(attrs, attribute.String(attrClientName, clientName))
	}
	return attrs
}

// classifyError follows the error.type convention: the status code for failed
// responses, the error kind otherwise.
func classifyError(status int, err error) string {
	if status >= 400 {
		return strconv.Itoa(status)
	}
	if err == nil {
		return ""
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		if clientErr.Type() == HTTPError {
			if respErr, isResp := clientErr.(*ResponseError); isResp {
				return strconv.Itoa(respErr.StatusCode())
			}
		}
		return string(clientErr.Type())
	}
	return "_OTHER"
}

// resetMetricsForTesting drops the cached instruments so the next recording
// picks up the current global meter provider.
func resetMetricsForTesting() {
	meterMu.Lock()
	defer meterMu.Unlock()
	meterInited = false
	requestDuration = nil
	retryCounter = nil
}
