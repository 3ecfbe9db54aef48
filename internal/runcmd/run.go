package runcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/okian/soarbridge/internal/adapters/http/api"
	"github.com/okian/soarbridge/internal/adapters/http/rest"
	service "github.com/okian/soarbridge/internal/app"
	"github.com/okian/soarbridge/internal/app/bootstrap"
	"github.com/okian/soarbridge/internal/config"
	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/pkg/logger"
)

// Run executes the configured command and writes its result to out.
func Run(ctx context.Context, cfg *Config, out io.Writer) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	var (
		res *model.Result
		err error
	)
	if cfg.BaseURL != "" {
		res, err = runRemote(ctx, cfg)
	} else {
		res, err = runLocal(ctx, cfg)
	}
	if err != nil {
		return err
	}
	return write(out, res, cfg.Readable)
}

// runLocal builds the service from the process configuration and runs the
// command without starting the poller or the HTTP server.
func runLocal(ctx context.Context, cfg *Config) (*model.Result, error) {
	appCfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.Get()
	svc, err := bootstrap.Build(ctx, appCfg, log)
	if err != nil {
		return nil, err
	}

	inv := service.NewInvocation(cfg.Integration, cfg.Command, cfg.Args)
	if cfg.InvocationID != "" {
		inv.ID = cfg.InvocationID
	}
	return svc.Execute(ctx, inv)
}

type remoteResponse struct {
	InvocationID string        `json:"invocation_id"`
	Result       *model.Result `json:"result"`
}

func runRemote(ctx context.Context, cfg *Config) (*model.Result, error) {
	opts := []rest.Option{rest.WithLogger(logger.Get().Named("runcmd"))}
	if cfg.Timeout > 0 {
		opts = append(opts, rest.WithTimeout(cfg.Timeout))
	}
	if cfg.InvocationID != "" {
		opts = append(opts, rest.WithHeader(api.HeaderInvocationID, cfg.InvocationID))
	}
	client := rest.New("soarbridge", cfg.BaseURL, opts...)

	path := "commands/" + url.PathEscape(cfg.Integration) + "/" + url.PathEscape(cfg.Command)
	resp, err := client.Post(ctx, path, nil, map[string]any{"args": cfg.Args})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = resp.JSON(&e)
		if e.Message == "" {
			e.Message = strings.TrimSpace(resp.Text())
		}
		return nil, fmt.Errorf("%w: [%d] %s: %s", ErrRemote, resp.StatusCode, e.Code, e.Message)
	}

	var body remoteResponse
	if err := resp.JSON(&body); err != nil {
		return nil, err
	}
	if body.Result == nil {
		body.Result = &model.Result{}
	}
	return body.Result, nil
}

func write(out io.Writer, res *model.Result, readable bool) error {
	if !readable {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	var b strings.Builder
	b.WriteString(res.ReadableOutput)
	if !strings.HasSuffix(res.ReadableOutput, "\n") {
		b.WriteString("\n")
	}
	for _, w := range res.Warnings {
		b.WriteString("WARNING: " + w + "\n")
	}
	_, err := io.WriteString(out, b.String())
	return err
}

// ShowHelp prints usage information for the run-command tool.
func ShowHelp(out io.Writer) {
	_, _ = io.WriteString(out, `soarbridge run-command
======================

Runs one integration command and prints its result.

Usage:
  run-command -integration NAME -command NAME [options]

Options:
  -integration string   Integration name (clarizen, securityscorecard)
  -command string       Command name, e.g. get-user
  -args string          Arguments as a JSON object
  -args-file string     File holding the arguments as a JSON object
  -arg key=value        Single argument; repeatable, wins over -args
  -url string           Server base URL; empty runs in-process with SOAR_* configuration
  -id string            Invocation id
  -timeout duration     Request timeout (default 60s)
  -readable             Print the readable output instead of JSON
  -help                 Show this help message

Examples:
  run-command -integration clarizen -command get-user -args '{"scim":{"id":"abc"}}'
  run-command -url http://localhost:9080 -integration securityscorecard \
      -command securityscorecard-company-score-get -arg domain=example.com -readable
`)
}
