// Package httpclient is a small JSON-over-HTTP client shared by the model
// backends, the web tools and the francine API client. Non-2xx responses are
// returned as *HTTPError carrying the status code and the server's message.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultUserAgent = "francine/0.1 (+https://github.com/tansive/francine)"
	maxBodyBytes     = 16 << 20
)

// Configurator supplies the server URL and, optionally, a bearer token.
type Configurator interface {
	GetServerURL() string
	GetToken() string
}

// StaticConfig is a fixed Configurator.
type StaticConfig struct {
	ServerURL string
	Token     string
}

func (c StaticConfig) GetServerURL() string { return c.ServerURL }
func (c StaticConfig) GetToken() string     { return c.Token }

// HTTPError represents an error response from the server.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Retryable reports whether the status suggests the request may succeed later.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// HTTPClient makes requests relative to the configured server URL.
type HTTPClient struct {
	config     Configurator
	httpClient *http.Client
	userAgent  string
}

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	Transport http.RoundTripper
}

// NewClient creates a client for config. A zero Timeout uses DefaultTimeout.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	o := ClientOptions{}
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return &HTTPClient{
		config:     config,
		httpClient: &http.Client{Timeout: o.Timeout, Transport: o.Transport},
		userAgent:  o.UserAgent,
	}
}

// RequestOptions describes one request. Path is joined to the server URL
// unless it is an absolute URL.
type RequestOptions struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Headers     map[string]string
	Body        []byte
}

// DoRequest performs the request and returns the response body.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error) {
	target, err := c.resolve(opts.Path)
	if err != nil {
		return nil, err
	}
	q := target.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	target.RawQuery = q.Encode()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	if token := c.config.GetToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		msg := gjson.GetBytes(data, "error").String()
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}
	return data, nil
}

// GetJSON issues a GET request.
func (c *HTTPClient) GetJSON(ctx context.Context, p string, query map[string]string) ([]byte, error) {
	return c.DoRequest(ctx, RequestOptions{Method: http.MethodGet, Path: p, QueryParams: query})
}

// PostJSON issues a POST request with a JSON body.
func (c *HTTPClient) PostJSON(ctx context.Context, p string, body []byte) ([]byte, error) {
	return c.DoRequest(ctx, RequestOptions{Method: http.MethodPost, Path: p, Body: body})
}

func (c *HTTPClient) resolve(p string) (*url.URL, error) {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		return u, nil
	}
	base := ""
	if c.config != nil {
		base = c.config.GetServerURL()
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL: %q", base)
	}
	u.Path = path.Join("/", u.Path, p)
	return u, nil
}
