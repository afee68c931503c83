package remote

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type opKey struct{}

func withOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

func opFrom(ctx context.Context) string {
	if op, ok := ctx.Value(opKey{}).(string); ok {
		return op
	}
	return "unknown"
}

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// instrumentedTransport stamps a request id on every outgoing request and
// records metrics. With debug on it also logs each exchange.
type instrumentedTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
	debug  bool
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	id := cloned.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
		cloned.Header.Set(RequestIDHeader, id)
	}
	op := opFrom(req.Context())

	start := time.Now()
	resp, err := t.base.RoundTrip(cloned)
	elapsed := time.Since(start)

	code := "error"
	if err == nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	requestsTotal.WithLabelValues(op, code).Inc()
	requestDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	if t.debug {
		attrs := []any{
			slog.String("op", op),
			slog.String("method", cloned.Method),
			slog.String("url", cloned.URL.String()),
			slog.String("request_id", id),
			slog.Duration("elapsed", elapsed),
		}
		if err != nil {
			t.logger.Debug("remote request failed", append(attrs, slog.String("error", err.Error()))...)
		} else {
			t.logger.Debug("remote request", append(attrs, slog.Int("status", resp.StatusCode))...)
		}
	}
	return resp, err
}
