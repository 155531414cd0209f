package main

import (
	"context"
	"os"

	"github.com/presskit/presskit/internal/server"
	"github.com/urfave/cli/v3"
)

var engineCommand = &cli.Command{
	Name:  "engine",
	Usage: "Run one request read from stdin and stream events to stdout",
	Flags: backendFlags,
	Action: func(ctx context.Context, command *cli.Command) error {
		dispatcher, err := resolveDispatcher(ctx, command)
		if err != nil {
			return err
		}
		return server.ServeStdio(ctx, getLogger(ctx).Named("engine"), dispatcher, os.Stdin, os.Stdout)
	},
}
