// Package remote is the HTTP client for the notes API. The API is an opaque
// collaborator: this package only encodes requests, decodes responses and
// turns non-2xx answers into apperr.APIError values. It never retries.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/notedash/internal/apperr"
)

// Client talks to the notes API rooted at baseURL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	debug   bool
}

// New constructs a Client. Options are applied before the instrumented
// transport is installed, so a custom http.Client keeps its own transport
// underneath it.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.http.Transport = &instrumentedTransport{base: base, logger: c.logger, debug: c.debug}
	return c, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// errorBody is the error convention of the notes API: one of the three
// fields is present.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (b errorBody) text() string {
	if len(b.Detail) > 0 && string(b.Detail) != "null" {
		var s string
		if err := json.Unmarshal(b.Detail, &s); err == nil {
			if s != "" {
				return s
			}
		} else {
			return detailText(b.Detail)
		}
	}
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}

// detailText flattens a FastAPI validation detail list into one line.
func detailText(raw json.RawMessage) string {
	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return string(raw)
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		loc := make([]string, 0, len(it.Loc))
		for _, l := range it.Loc {
			loc = append(loc, fmt.Sprint(l))
		}
		if len(loc) > 0 {
			parts = append(parts, strings.Join(loc, ".")+": "+it.Msg)
		} else {
			parts = append(parts, it.Msg)
		}
	}
	return strings.Join(parts, "; ")
}

// request describes one API call.
type request struct {
	op          string // operation name, used for errors and metrics
	method      string
	path        string
	body        io.Reader
	contentType string
}

func jsonRequest(op, method, path string, v any) (request, error) {
	r := request{op: op, method: method, path: path}
	if v == nil {
		return r, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return r, fmt.Errorf("remote: %s: encode body: %w", op, err)
	}
	r.body = bytes.NewReader(data)
	r.contentType = "application/json"
	return r, nil
}

// do performs r and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(withOp(ctx, r.op), r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("remote: %s: %w", r.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		httpReq.Header.Set("Content-Type", r.contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &apperr.TransportError{Op: "remote: " + r.op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		c.logger.Debug("remote call failed",
			slog.String("op", r.op),
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return fmt.Errorf("remote: %s: %w", r.op, &apperr.APIError{Status: resp.StatusCode, Message: eb.text()})
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.TransportError{Op: "remote: " + r.op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
