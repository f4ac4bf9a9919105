// Package transport owns the HTTP client the remote auth service and the
// campaign repository share: one acquired client, a deadline per operation
// class, and classification of every failure into the error taxonomy.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"campaignkit/internal/model"
)

// Timeouts holds the per-operation-class deadlines. A timer firing first
// abandons the call: the transport cancels the request and the caller
// immediately receives a timeout error.
type Timeouts struct {
	Auth       time.Duration
	Query      time.Duration
	Refresh    time.Duration
	UserUpdate time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Auth:       10 * time.Second,
		Query:      8 * time.Second,
		Refresh:    5 * time.Second,
		UserUpdate: 15 * time.Second,
	}
}

var (
	sharedOnce   sync.Once
	sharedClient *http.Client
)

// sharedHTTPClient returns the process-wide HTTP client. Per-request
// deadlines come from context, so the client itself carries none.
func sharedHTTPClient() *http.Client {
	sharedOnce.Do(func() {
		sharedClient = &http.Client{}
	})
	return sharedClient
}

// TokenSource supplies the bearer token attached to authenticated requests.
// An empty string sends the request anonymously.
type TokenSource func() string

// Client wraps a base URL with JSON encoding, bearer auth and error
// classification.
type Client struct {
	baseURL  string
	http     *http.Client
	timeouts Timeouts
	token    TokenSource
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeouts(t Timeouts) Option {
	return func(c *Client) { c.timeouts = t }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     sharedHTTPClient(),
		timeouts: DefaultTimeouts(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Timeouts() Timeouts { return c.timeouts }

// apiError is the error envelope the backend returns for non-2xx responses.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Do issues one JSON request with the given deadline. body may be nil; when
// out is non-nil a 2xx response body is decoded into it. Failures come back
// classified: context deadline as timeout, transport errors as network,
// 401/403 as auth_required and every other rejection as business.
func (c *Client) Do(ctx context.Context, deadline time.Duration, method string, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return model.WrapError(model.ErrorValidation, "encode request body", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return model.WrapError(model.ErrorValidation, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.WrapError(model.ErrorNetwork, "decode response body", err)
	}
	return nil
}

func classifyTransport(ctx context.Context, err error) *model.Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return model.WrapError(model.ErrorTimeout, "operation timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.WrapError(model.ErrorTimeout, "operation timed out", err)
	}
	return model.WrapError(model.ErrorNetwork, "request failed", err)
}

func classifyStatus(resp *http.Response) *model.Error {
	message := fmt.Sprintf("request rejected with status %d", resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(raw) > 0 {
		var parsed apiError
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.NewError(model.ErrorAuthRequired, message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return model.NewError(model.ErrorTimeout, message)
	default:
		return model.NewError(model.ErrorBusiness, message)
	}
}
