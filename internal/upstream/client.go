package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/n0madic/go-chatkit/internal/limits"
)

// DefaultTimeout bounds a whole exchange, including a streamed body.
// Streams can be long-lived, so the default is generous.
const DefaultTimeout = 5 * time.Minute

// maxErrorBody caps how much of an error response is buffered.
const maxErrorBody = 1 << 20

// Config describes how to reach a backend.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Headers map[string]string
	Verbose bool
	Debug   bool

	// HTTPClient overrides the transport. Its Timeout is left untouched.
	HTTPClient *http.Client
}

// Client posts request bodies to a backend and hands back the open response.
type Client struct {
	baseURL string
	http    *http.Client
	headers map[string]string
	verbose bool
	debug   bool
	limits  *limits.Tracker

	dumpMu  sync.Mutex
	dumpOut io.Writer
}

// NewClient creates a backend client. A non-empty APIKey is sent as a
// bearer token through an oauth2 transport.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	if cfg.APIKey != "" {
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"})
		authed := *hc
		authed.Transport = &oauth2.Transport{Source: src, Base: base}
		hc = &authed
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		headers: cfg.Headers,
		verbose: cfg.Verbose,
		debug:   cfg.Debug,
		limits:  limits.NewTracker(),
		dumpOut: stderrWriter{},
	}
}

// RateLimits returns the last rate-limit snapshot seen, if any.
func (c *Client) RateLimits() *limits.StoredSnapshot {
	return c.limits.Last()
}

// Post sends body to path. On success the caller owns the response body.
// Network failures and error statuses are reported as *TransportError.
func (c *Client) Post(ctx context.Context, path string, body []byte, stream bool) (*http.Response, error) {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	if c.verbose {
		slog.Info("upstream.request",
			"url", url,
			"stream", stream,
			"body_bytes", len(body),
		)
	}
	c.dumpRequest(req, body)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	c.limits.Record(resp.Header)
	if c.verbose {
		attrs := []any{"status", resp.StatusCode, "elapsed", time.Since(start).Round(time.Millisecond)}
		if requestID := extractUpstreamRequestID(resp.Header); requestID != "" {
			attrs = append(attrs, "request_id", requestID)
		}
		slog.Info("upstream.response", attrs...)
	}
	c.dumpResponse(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Body:       errBody,
			Headers:    resp.Header,
		}
	}
	return resp, nil
}
