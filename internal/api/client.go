package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/0xPratikag/clinicctl/internal/auth"
)

// Client is a thin authenticated wrapper over the clinic REST backend.
// Every request carries the bearer token held by the auth.Context it was
// built with.
type Client struct {
	baseURL    string
	auth       *auth.Context
	httpClient *http.Client
	logger     *log.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying client whose transport and timeout are
// reused beneath the bearer transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger enables one log line per request.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client rooted at baseURL, authenticated by authCtx.
func New(baseURL string, authCtx *auth.Context, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		auth:       authCtx,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	// oauth2.Transport without ReuseTokenSource: a logout takes effect on the
	// next request instead of after the cached token expires.
	c.httpClient = &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: &oauth2.Transport{Source: authCtx, Base: base},
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET with optional query parameters and decodes into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if _, err := c.auth.Token(); err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %s body", method, path)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logf("[REQ] %s %s failed dur=%s: %v", method, path, time.Since(start), err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrapf(ctxErr, "%s %s", method, path)
		}
		return errors.Wrapf(err, "%s %s", method, path)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	c.logf("[REQ] %s %s status=%d dur=%s", method, path, resp.StatusCode, time.Since(start))
	if err != nil {
		return errors.Wrapf(err, "reading %s %s response", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(method, path, resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], respBody...)
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", method, path)
	}
	return nil
}

func (c *Client) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
