package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"relief/internal/cli"
	applog "relief/internal/log"
)

func main() {
	cli.LoadEnvFile()

	open := func(ctx context.Context) (*cli.Session, error) {
		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return nil, err
		}
		// Diagnostics go to stderr so --format json stays parseable.
		logger := applog.New(applog.Config{
			Level:     applog.ParseLevel(cfg.LogLevel),
			Component: applog.ComponentCLI,
			Format:    cfg.LogFormat,
			Output:    os.Stderr,
		})
		if os.Getenv("LOG_LEVEL") == "" {
			logger = applog.Discard()
		}
		return cli.OpenEngine(ctx, cfg, logger)
	}

	err := cli.NewRootCommand(open).ExecuteContext(context.Background())
	if err == nil {
		os.Exit(cli.ExitSuccess)
	}

	// Rejected actions were already reported on stdout.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	if exitErr.Code == cli.ExitCommandError {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitErr.Code)
}
