// Package runcmd executes a single command from the command line, either
// in-process or against a running server.
package runcmd

import (
	"errors"
	"time"

	"github.com/okian/soarbridge/internal/domain/types"
)

// Sentinel kinds for command-line runs.
var (
	ErrUsage   = errors.New("usage")
	ErrRemote  = errors.New("remote command failed")
	ErrArgFile = errors.New("cannot read args file")
)

// Config holds one command-line invocation.
type Config struct {
	BaseURL      string        // Server to call; empty runs in-process
	Integration  string        // e.g. clarizen
	Command      string        // e.g. get-user
	Args         types.Args    // Merged -args, -args-file and -arg values
	InvocationID string        // Optional id echoed in logs
	Timeout      time.Duration // Request timeout
	Readable     bool          // Print the readable output instead of JSON
}

func (c *Config) validate() error {
	switch {
	case c.Integration == "":
		return errors.Join(ErrUsage, errors.New("-integration is required"))
	case c.Command == "":
		return errors.Join(ErrUsage, errors.New("-command is required"))
	}
	return nil
}
