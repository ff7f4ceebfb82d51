// Package graph is a Microsoft Graph REST client for the directory, Teams,
// drive and mail calls the CRM makes on behalf of a signed-in user.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/lborres/kontak/core"
)

// Microsoft Graph API base URL.
const graphBaseURL = "https://graph.microsoft.com/v1.0"

// Client calls Microsoft Graph with a caller-supplied access token. It holds
// no credentials of its own and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
}

var _ core.GraphClient = (*Client)(nil)

type Option func(*Client)

// WithBaseURL points the client at another Graph endpoint (tests, national clouds).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithRateLimit(cfg RateLimitConfig) Option {
	return func(c *Client) { c.limiter = NewRateLimiter(cfg) }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    graphBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    NewRateLimiter(DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request is one Graph call. url is absolute when set, otherwise path is
// joined to the base URL.
type request struct {
	method      string
	path        string
	url         string
	token       string
	body        io.Reader
	length      int64
	contentType string
	header      http.Header
}

// do sends the request and returns the response for 2xx statuses. Other
// statuses are decoded into *Error and the body is closed.
func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx, r.token); err != nil {
		return nil, err
	}

	target := r.url
	if target == "" {
		target = c.baseURL + r.path
	}

	body := r.body
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, goerr.Wrap(err, "create graph request")
	}
	if r.length > 0 {
		req.ContentLength = r.length
	}

	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", core.ErrUpstream, err), "graph request failed",
			goerr.V("method", r.method), goerr.V("path", r.path))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	retryAfter := resp.Header.Get("Retry-After")
	if resp.StatusCode == http.StatusTooManyRequests || (IsRetryable(resp.StatusCode) && retryAfter != "") {
		c.limiter.RecordRateLimitError(r.token, retryAfter)
	}
	return nil, decodeError(resp)
}

// doJSON sends in as JSON (when non-nil) and decodes the response into out
// (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	r := request{method: method, path: path, token: token}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return goerr.Wrap(err, "encode graph request")
		}
		r.body = bytes.NewReader(payload)
		r.contentType = "application/json"
	}

	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "decode graph response", goerr.V("path", path))
	}
	return nil
}

// escapePath escapes each segment of a slash-separated drive path.
func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
