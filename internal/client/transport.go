package client

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/raphaelgruber/companion/internal/metrics"
)

// maxArgLogLen is the maximum length for logged paths before truncation.
const maxArgLogLen = 200

// defaultSlowThreshold is the duration above which calls are logged at WARN level.
const defaultSlowThreshold = 2 * time.Second

type opKey struct{}

// withOperation tags ctx with the logical operation name used for logs and metrics.
func withOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

func operationFrom(ctx context.Context) string {
	if op, ok := ctx.Value(opKey{}).(string); ok {
		return op
	}
	return "unknown"
}

// loggingTransport logs every call with timing, tags it with a request id
// and feeds the metrics collector.
type loggingTransport struct {
	next      http.RoundTripper
	logger    *slog.Logger
	collector *metrics.Collector
	slow      time.Duration
}

// newRequestID returns the X-Request-ID value for one call.
func (t *loggingTransport) newRequestID() string {
	return ulid.Make().String()
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	op := operationFrom(req.Context())

	reqID := t.newRequestID()
	req = req.Clone(req.Context())
	req.Header.Set("X-Request-ID", reqID)

	resp, err := t.next.RoundTrip(req)

	duration := time.Since(start)
	failed := err != nil || resp.StatusCode >= http.StatusBadRequest
	if t.collector != nil {
		t.collector.RecordCall(op, duration, failed)
	}

	attrs := []any{
		"op", op,
		"method", req.Method,
		"path", truncate(req.URL.RequestURI(), maxArgLogLen),
		"request_id", reqID,
		"duration_ms", duration.Milliseconds(),
	}

	switch {
	case err != nil:
		attrs = append(attrs, "error", err.Error())
		t.logger.Error("api call failed", attrs...)
	case failed:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Warn("api call rejected", attrs...)
	case duration > t.slow:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Warn("slow api call", attrs...)
	default:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Debug("api call completed", attrs...)
	}

	return resp, err
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
