package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/soarbridge/internal/runcmd"
	"github.com/okian/soarbridge/pkg/logger"
)

const defaultTimeout = 60 * time.Second

func main() {
	var (
		pairs       runcmd.ArgList
		integration = flag.String("integration", "", "Integration name (clarizen, securityscorecard)")
		command     = flag.String("command", "", "Command name, e.g. get-user")
		rawArgs     = flag.String("args", "", "Arguments as a JSON object")
		argsFile    = flag.String("args-file", "", "File holding the arguments as a JSON object")
		baseURL     = flag.String("url", "", "Server base URL; empty runs in-process")
		id          = flag.String("id", "", "Invocation id")
		timeout     = flag.Duration("timeout", defaultTimeout, "Request timeout")
		readable    = flag.Bool("readable", false, "Print the readable output instead of JSON")
		logLevel    = flag.String("log-level", "warn", "Log level written to stderr")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Var(&pairs, "arg", "Single key=value argument; repeatable")
	flag.Parse()

	if *help {
		runcmd.ShowHelp(os.Stdout)
		return
	}

	// Results go to stdout; keep logs on stderr.
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(*logLevel); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	args, err := runcmd.BuildArgs(*argsFile, *rawArgs, pairs)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cfg := &runcmd.Config{
		BaseURL:      *baseURL,
		Integration:  *integration,
		Command:      *command,
		Args:         args,
		InvocationID: *id,
		Timeout:      *timeout,
		Readable:     *readable,
	}
	if err := runcmd.Run(ctx, cfg, os.Stdout); err != nil {
		os.Stderr.WriteString("command failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
}
