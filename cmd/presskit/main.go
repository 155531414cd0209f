package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func newApp() *cli.Command {
	var logger *zap.Logger

	return &cli.Command{
		Name:  "presskit",
		Usage: "Presskit compresses files and directories with pluggable backends",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Human readable logs with stack traces on warnings",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log Level (debug, info, warn, error)",
				Sources: cli.EnvVars("PRESSKIT_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			compressCommand,
			engineCommand,
			serveCommand,
			validateCommand,
			algorithmsCommand,
			versionCommand,
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			var (
				level zap.AtomicLevel
				err   error
			)
			logger, level, err = createLogger(command.Bool("debug"), command.String("log-level"))
			if err != nil {
				return nil, err
			}

			ctx = withInteractive(ctx, isInteractiveEnvironment())
			return withLogger(ctx, logger, level), nil
		},
		After: func(ctx context.Context, command *cli.Command) error {
			if logger != nil {
				// Syncing stderr fails on some platforms, there is nothing to recover.
				_ = logger.Sync()
			}
			return nil
		},
		ExitErrHandler: func(ctx context.Context, command *cli.Command, err error) {
			if err == nil {
				return
			}
			if logger := tryLogger(ctx); logger != nil {
				logger.Error("command failed", zap.String("command", command.Name), zap.Error(err))
				return
			}
			fmt.Fprintf(os.Stderr, "presskit: %v\n", err)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().Run(ctx, os.Args)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
