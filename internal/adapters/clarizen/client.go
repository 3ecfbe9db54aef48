// Package clarizen is a client for the Clarizen work management REST API,
// limited to the user lifecycle calls.
package clarizen

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/okian/soarbridge/internal/adapters/http/rest"
	"github.com/okian/soarbridge/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// Client talks to one Clarizen instance. A session is opened lazily before
// the first data call and reopened once when a call returns 401.
type Client struct {
	rest     *rest.Client
	username string
	password string
	log      logger.Logger

	sf      singleflight.Group
	session atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client on top of a REST transport rooted at the services URL.
func New(transport *rest.Client, username, password string, opts ...Option) *Client {
	c := &Client{
		rest:     transport,
		username: username,
		password: password,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login opens a session. The response is returned as-is so callers can
// judge the status; a session header is installed when one is issued.
func (c *Client) Login(ctx context.Context) (*rest.Response, error) {
	q := url.Values{"userName": {c.username}, "Password": {c.password}}
	resp, err := c.rest.Post(ctx, "/authentication/login", q, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogin, err)
	}

	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := resp.JSON(&body); err != nil || body.SessionID == "" {
		c.log.Info(ctx, "no session token has been found", logger.Int("status", resp.StatusCode))
		return resp, nil
	}
	c.rest.SetHeader("Authorization", "Session "+body.SessionID)
	return resp, nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	if c.session.Load() {
		return nil
	}
	_, err, _ := c.sf.Do("login", func() (any, error) {
		if c.session.Load() {
			return nil, nil
		}
		if _, err := c.Login(ctx); err != nil {
			return nil, err
		}
		c.session.Store(true)
		return nil, nil
	})
	return err
}

func (c *Client) do(ctx context.Context, req rest.Request) (*rest.Response, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	resp, err := c.rest.Do(ctx, req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	c.log.Info(ctx, "session rejected, logging in again", logger.String("path", req.Path))
	c.session.Store(false)
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	return c.rest.Do(ctx, req)
}

// GetUser fetches a user by entity path ("/User/<id>") or bare id.
func (c *Client) GetUser(ctx context.Context, id string) (*rest.Response, error) {
	return c.do(ctx, rest.Request{
		Method: http.MethodGet,
		Path:   "/data/objects" + EntityPath(id),
		Query:  url.Values{"fields": {UserFields}},
	})
}

// FindUser looks up an active user by email.
func (c *Client) FindUser(ctx context.Context, email string) (*rest.Response, error) {
	return c.do(ctx, rest.Request{
		Method: http.MethodPost,
		Path:   "/data/findUserQuery",
		Body:   map[string]string{"email": email},
	})
}

// FindDisabledUser looks up a user by email regardless of state.
func (c *Client) FindDisabledUser(ctx context.Context, email string) (*rest.Response, error) {
	q := fmt.Sprintf("SELECT Name FROM User WHERE email='%s'", strings.ReplaceAll(email, "'", "''"))
	return c.do(ctx, rest.Request{
		Method: http.MethodPost,
		Path:   "/data/Query",
		Body:   map[string]string{"q": q},
	})
}

// CreateUser creates a user from a profile of Clarizen field names.
func (c *Client) CreateUser(ctx context.Context, profile map[string]any) (*rest.Response, error) {
	return c.do(ctx, rest.Request{Method: http.MethodPut, Path: "/data/objects/User", Body: profile})
}

// UpdateUser updates the fields present in profile.
func (c *Client) UpdateUser(ctx context.Context, id string, profile map[string]any) (*rest.Response, error) {
	return c.do(ctx, rest.Request{
		Method: http.MethodPost,
		Path:   "/data/objects" + EntityPath(id),
		Body:   profile,
	})
}

// Lifecycle enables or disables users.
func (c *Client) Lifecycle(ctx context.Context, op string, ids ...string) (*rest.Response, error) {
	entities := make([]string, len(ids))
	for i, id := range ids {
		entities[i] = EntityPath(id)
	}
	return c.do(ctx, rest.Request{
		Method: http.MethodPost,
		Path:   "/data/lifecycle",
		Body:   map[string]any{"ids": entities, "operation": op},
	})
}
