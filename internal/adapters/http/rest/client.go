// Package rest is the outbound JSON transport shared by the vendor clients.
package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/okian/soarbridge/pkg/logger"
	"github.com/okian/soarbridge/pkg/metrics"
	"github.com/sony/gobreaker"
	"github.com/valyala/fastjson"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 16 << 20
)

// Client sends JSON requests to one vendor base URL.
type Client struct {
	name     string
	baseURL  string
	timeout  time.Duration
	insecure bool
	proxy    bool
	http     *http.Client
	breaker  CircuitBreaker
	log      logger.Logger

	mu      sync.RWMutex
	headers http.Header
}

// New creates a client. name labels metrics, logs and the breaker.
func New(name, baseURL string, opts ...Option) *Client {
	c := &Client{
		name:    name,
		baseURL: baseURL,
		timeout: defaultTimeout,
		breaker: passthrough{},
		log:     logger.Discard(),
		headers: http.Header{},
	}
	c.headers.Set("Accept", "application/json")
	c.headers.Set("Content-Type", "application/json")

	for _, opt := range opts {
		opt(c)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if c.proxy {
		transport.Proxy = http.ProxyFromEnvironment
	}
	if c.insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in
	}
	c.http = &http.Client{Timeout: c.timeout, Transport: transport}
	return c
}

// Name returns the vendor label.
func (c *Client) Name() string { return c.name }

// SetHeader changes a header for all subsequent requests.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set(key, value)
}

// Header returns the current value of a default header.
func (c *Client) Header(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers.Get(key)
}

// Request describes one call. Path is joined to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Query: query, Body: body})
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// Do sends the request. Any HTTP response is returned without error, 5xx
// included; errors are reserved for transport failures and an open breaker.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	err := c.breaker.Execute(func() error {
		r, err := c.send(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		if r.StatusCode >= http.StatusInternalServerError {
			return errServerStatus
		}
		return nil
	})
	switch {
	case err == nil:
		return resp, nil
	case errors.Is(err, errServerStatus) && resp != nil:
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordVendorError(c.name, "circuit_open")
		return nil, fmt.Errorf("%w: %s %s: %w", ErrCircuitOpen, req.Method, req.Path, err)
	default:
		return nil, err
	}
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s body: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(raw)
	}

	target := c.url(req.Path, req.Query)
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.Method, req.Path, err)
	}
	c.mu.RLock()
	httpReq.Header = c.headers.Clone()
	c.mu.RUnlock()

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.RecordVendorError(c.name, "transport")
		c.log.Warn(ctx, "vendor request failed",
			logger.String("method", req.Method),
			logger.String("path", req.Path),
			logger.Error(err))
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordVendorError(c.name, "transport")
		return nil, fmt.Errorf("%w: read %s %s: %w", ErrTransport, req.Method, req.Path, err)
	}

	elapsed := time.Since(start)
	metrics.RecordVendorRequest(c.name, req.Method, httpResp.StatusCode, float64(elapsed.Milliseconds()))
	c.log.Debug(ctx, "vendor request",
		logger.String("method", req.Method),
		logger.String("path", req.Path),
		logger.Int("status", httpResp.StatusCode),
		logger.Duration("elapsed", elapsed))

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: raw}, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Response is a fully read vendor response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns a *StatusError for non-2xx responses.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{StatusCode: r.StatusCode, Message: r.Message()}
}

// JSON decodes the body into v. An empty body leaves v untouched.
func (r *Response) JSON(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// Map decodes an object body; anything else yields an empty map.
func (r *Response) Map() map[string]any {
	var m map[string]any
	if err := r.JSON(&m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// Message extracts a vendor error message: error.message, then message,
// then a string error field.
func (r *Response) Message() string {
	for _, path := range [][]string{{"error", "message"}, {"message"}, {"error"}, {"errorCode"}} {
		if s := fastjson.GetString(r.Body, path...); s != "" {
			return s
		}
	}
	return ""
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }
