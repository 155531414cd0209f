package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

var algorithmsCommand = &cli.Command{
	Name:  "algorithms",
	Usage: "List the algorithms the local engine supports",
	Flags: backendFlags,
	Action: func(ctx context.Context, command *cli.Command) error {
		dispatcher, err := resolveDispatcher(ctx, command)
		if err != nil {
			return err
		}

		registry := dispatcher.Registry()
		w := command.Root().Writer
		for _, name := range registry.Available() {
			runner, err := registry.Lookup(name)
			if err != nil {
				return err
			}
			line := fmt.Sprintf("%-12s %-6s .%s", runner.Name(), runner.Kind(), runner.Extension())
			if aliases := registry.Aliases(name); len(aliases) > 0 {
				line += "  (aliases: " + strings.Join(aliases, ", ") + ")"
			}
			fmt.Fprintln(w, line)
		}
		return nil
	},
}
