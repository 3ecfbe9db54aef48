// Package iam implements the Clarizen user lifecycle commands.
package iam

import (
	"context"

	"github.com/okian/soarbridge/internal/adapters/http/rest"
	service "github.com/okian/soarbridge/internal/app"
	"github.com/okian/soarbridge/pkg/logger"
)

const (
	// Integration is the name commands are registered under.
	Integration = "clarizen"
	// Brand is reported in every IAM record.
	Brand = "ClarizenIAM"
	// UserNotFound is the error message for failed lookups.
	UserNotFound = "User not found"
)

// UserAPI is the subset of the Clarizen client the commands use.
type UserAPI interface {
	Login(ctx context.Context) (*rest.Response, error)
	GetUser(ctx context.Context, id string) (*rest.Response, error)
	FindUser(ctx context.Context, email string) (*rest.Response, error)
	FindDisabledUser(ctx context.Context, email string) (*rest.Response, error)
	CreateUser(ctx context.Context, profile map[string]any) (*rest.Response, error)
	UpdateUser(ctx context.Context, id string, profile map[string]any) (*rest.Response, error)
	Lifecycle(ctx context.Context, op string, ids ...string) (*rest.Response, error)
}

// Commands binds the IAM commands to one Clarizen instance.
type Commands struct {
	client        UserAPI
	instance      string
	createMapping string
	updateMapping string
	log           logger.Logger
}

// Option configures Commands.
type Option func(*Commands)

// WithInstanceName sets the instance name reported in results.
func WithInstanceName(name string) Option {
	return func(c *Commands) {
		c.instance = name
	}
}

// WithCustomMapping sets the default extension-to-field mappings (JSON
// objects) for create and for update/enable. A customMapping argument
// overrides them per call.
func WithCustomMapping(create, update string) Option {
	return func(c *Commands) {
		c.createMapping = create
		c.updateMapping = update
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Commands) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates the command set.
func New(client UserAPI, opts ...Option) *Commands {
	c := &Commands{
		client:   client,
		instance: "default",
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements service.Integration.
func (c *Commands) Name() string { return Integration }

// Commands implements service.Integration.
func (c *Commands) Commands() map[string]service.Command {
	return map[string]service.Command{
		"test-module":  c.TestModule,
		"get-user":     c.GetUser,
		"create-user":  c.CreateUser,
		"update-user":  c.UpdateUser,
		"disable-user": c.DisableUser,
		"enable-user":  c.EnableUser,
	}
}
