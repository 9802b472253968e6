// Package api is the REST client shared by every feature repository. It attaches the bearer token
// to protected calls, tags requests with an id, traces them with otelhttp and maps failures to *Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TokenSource yields the current bearer token, or "" when signed out.
type TokenSource interface {
	Token(ctx context.Context) string
}

// Client calls the backend REST API relative to a base URL such as http://localhost:8082/api.
type Client struct {
	baseURL        string
	basePath       string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
	afterMutation  func(ctx context.Context, method, path string)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the traced default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithOnUnauthorized registers a hook run when a protected call answers 401.
func WithOnUnauthorized(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithAfterMutation registers a hook run after every successful non-GET call.
func WithAfterMutation(fn func(ctx context.Context, method, path string)) Option {
	return func(c *Client) { c.afterMutation = fn }
}

// NewClient returns a client for baseURL. tokens may be nil for anonymous use.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL:  baseURL,
		basePath: u.Path,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base.
func (c *Client) BaseURL() string { return c.baseURL }

// GetJSON decodes a GET response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// PostJSON sends in as JSON and decodes the response into out (nil to discard).
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := c.Do(ctx, http.MethodPost, path, nil, in)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// PutJSON sends in as JSON and decodes the response into out (nil to discard).
func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	body, err := c.Do(ctx, http.MethodPut, path, nil, in)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// PatchJSON sends in as JSON with PATCH and decodes the response into out (nil to discard).
func (c *Client) PatchJSON(ctx context.Context, path string, in, out any) error {
	body, err := c.Do(ctx, http.MethodPatch, path, nil, in)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// Delete issues a DELETE with optional query and decodes any response into out.
func (c *Client) Delete(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.Do(ctx, http.MethodDelete, path, query, nil)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// GetText returns the raw response body as a string.
func (c *Client) GetText(ctx context.Context, path string, query url.Values) (string, error) {
	body, err := c.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetBlob returns the raw response body, e.g. a server-rendered export.
func (c *Client) GetBlob(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Do performs a request and returns the body of a 2xx response. in, when non-nil, is sent as JSON.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in any) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	protected := !IsPublic(method, c.basePath+path)
	if protected && c.tokens != nil {
		if tok := c.tokens.Token(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Status: resp.StatusCode, Method: method, Path: path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: serverMessage(body),
		}
		if resp.StatusCode == http.StatusUnauthorized && protected && c.onUnauthorized != nil {
			log.Printf("api: %s %s returned 401; clearing session", method, path)
			c.onUnauthorized(ctx)
		}
		return nil, apiErr
	}
	if method != http.MethodGet && c.afterMutation != nil {
		c.afterMutation(ctx, method, path)
	}
	return body, nil
}

func decode(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

// IsPublic reports whether a request to the absolute path needs no bearer token.
func IsPublic(method, path string) bool {
	switch {
	case strings.HasPrefix(path, "/api/auth/"):
		return true
	case path == "/api/users" && method == http.MethodPost:
		return true
	case path == "/api/users/test":
		return true
	case path == "/api/capteurs" && method == http.MethodGet:
		return true
	case path == "/api/capteurs/current":
		return true
	case strings.HasPrefix(path, "/api/weather"), strings.HasPrefix(path, "/api/airquality"):
		return true
	case strings.Contains(path, "/ws-mqtt"), strings.Contains(path, "/topic/"), strings.Contains(path, "/app/"):
		return true
	}
	return false
}
