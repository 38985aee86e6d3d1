package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/tansive/francine/internal/common/httpclient"
)

// Client talks to a running francine server.
type Client struct {
	http   *httpclient.HTTPClient
	config clientConfig
}

// ClientOption is a function type for configuring client behavior.
type ClientOption func(*clientConfig)

type clientConfig struct {
	token      string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// WithToken sends token as a bearer credential.
func WithToken(token string) ClientOption {
	return func(c *clientConfig) { c.token = token }
}

// WithTimeout bounds each request. /ask can block on clarifications, so the
// default is generous.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

// WithMaxRetries sets how many times a request that failed to reach the
// server is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *clientConfig) { c.maxRetries = n }
}

// WithRetryDelay sets the initial delay between retries.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.retryDelay = d }
}

// NewClient returns a client for the server at serverURL.
func NewClient(serverURL string, opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{
		timeout:    10 * time.Minute,
		maxRetries: 2,
		retryDelay: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	u, err := url.Parse(serverURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL: %q", serverURL)
	}
	return &Client{
		http:   httpclient.NewClient(httpclient.StaticConfig{ServerURL: serverURL, Token: cfg.token}, httpclient.ClientOptions{Timeout: cfg.timeout}),
		config: cfg,
	}, nil
}

// do retries transport failures and 5xx responses when retry is set. Other
// HTTP errors are returned as *httpclient.HTTPError.
func (c *Client) do(ctx context.Context, opts httpclient.RequestOptions, out any, retryable bool) error {
	if opts.Headers == nil {
		opts.Headers = map[string]string{}
	}
	opts.Headers[VersionHeader] = Version

	attempts := uint(1)
	if retryable {
		attempts += uint(c.config.maxRetries)
	}
	var data []byte
	err := retry.Do(func() error {
		var err error
		data, err = c.http.DoRequest(ctx, opts)
		if err == nil {
			return nil
		}
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && !httpErr.Retryable() {
			return retry.Unrecoverable(err)
		}
		return err
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.config.retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Ask sends prompt and waits for the answer. Asks are not retried because
// they have side effects.
func (c *Client) Ask(ctx context.Context, prompt string) (*AskResponse, error) {
	body, err := json.Marshal(AskRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	var rsp AskResponse
	if err := c.do(ctx, httpclient.RequestOptions{Method: http.MethodPost, Path: "/ask", Body: body}, &rsp, false); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// Tools lists the registered tools.
func (c *Client) Tools(ctx context.Context) ([]Tool, error) {
	var tools []Tool
	if err := c.do(ctx, httpclient.RequestOptions{Path: "/tools"}, &tools, true); err != nil {
		return nil, err
	}
	return tools, nil
}

// Clarifications lists the questions waiting for an answer.
func (c *Client) Clarifications(ctx context.Context) ([]Clarification, error) {
	var list []Clarification
	if err := c.do(ctx, httpclient.RequestOptions{Path: "/clarifications"}, &list, true); err != nil {
		return nil, err
	}
	return list, nil
}

// Answer replies to the clarification with id.
func (c *Client) Answer(ctx context.Context, id, answer string) error {
	body, err := json.Marshal(ClarificationAnswer{Answer: answer})
	if err != nil {
		return err
	}
	return c.do(ctx, httpclient.RequestOptions{Method: http.MethodPost, Path: "/clarifications/" + url.PathEscape(id), Body: body}, nil, true)
}

// Schedule registers a daily job.
func (c *Client) Schedule(ctx context.Context, timeOfDay, command string) (*Job, error) {
	body, err := json.Marshal(ScheduleRequest{TimeOfDay: timeOfDay, Command: command})
	if err != nil {
		return nil, err
	}
	var job Job
	if err := c.do(ctx, httpclient.RequestOptions{Method: http.MethodPost, Path: "/schedule", Body: body}, &job, false); err != nil {
		return nil, err
	}
	return &job, nil
}

// Jobs lists the scheduled jobs.
func (c *Client) Jobs(ctx context.Context) ([]Job, error) {
	var jobs []Job
	if err := c.do(ctx, httpclient.RequestOptions{Path: "/schedule"}, &jobs, true); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Version returns the server and API versions.
func (c *Client) Version(ctx context.Context) (*VersionResponse, error) {
	var v VersionResponse
	if err := c.do(ctx, httpclient.RequestOptions{Path: "/version"}, &v, true); err != nil {
		return nil, err
	}
	return &v, nil
}
