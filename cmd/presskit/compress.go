package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	v1 "github.com/presskit/presskit/apis/v1"
	"github.com/presskit/presskit/internal/invoke"
	"github.com/presskit/presskit/internal/preset"
	"github.com/presskit/presskit/internal/session"
	"github.com/presskit/presskit/internal/state"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var compressCommand = &cli.Command{
	Name:      "compress",
	Usage:     "Compress a file or directory",
	Flags:     append(compressFlags(), backendFlags...),
	Arguments: compressArguments(),
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		cfg, err := buildConfiguration(command)
		if err != nil {
			return err
		}

		store := state.New()
		unsubscribe := store.Subscribe(func(c state.Configuration) {
			logger.Debug("configuration changed",
				zap.Stringp("algorithm", c.Algorithm),
				zap.Strings("flags", c.Flags),
				zap.String("input_path", c.InputPath),
				zap.String("output_path", c.OutputPath),
			)
		})
		defer unsubscribe()

		// SetAlgorithm clears the other fields, so it goes first.
		store.SetAlgorithm(cfg.Algorithm)
		store.SetFlags(cfg.Flags)
		store.SetPaths(cfg.InputPath, cfg.OutputPath)

		printer := newEventPrinter(ctx, os.Stderr, logger.Named("events"))
		boundary, err := buildBoundary(ctx, command, printer)
		if err != nil {
			return err
		}

		controller := session.NewController(logger.Named("session"), store, boundary)
		resp, err := controller.Run(ctx)
		if err != nil {
			return fmt.Errorf("compression failed: %w", err)
		}

		logger.Info("compression finished",
			zap.String("job_id", resp.JobID),
			zap.String("algorithm", resp.Algorithm),
			zap.String("output", resp.Output),
		)
		fmt.Fprintln(command.Root().Writer, resp.Output)
		return nil
	},
}

func compressFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "algorithm",
			Aliases: []string{"a"},
			Usage:   "Compression algorithm, the backend default is used when unset",
		},
		&cli.StringSliceFlag{
			Name:    "flag",
			Aliases: []string{"f"},
			Usage:   "Flag passed to the compressor, in order (can be repeated)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory or destination URL (s3://bucket/prefix, file:///dir)",
		},
		&cli.StringFlag{
			Name:    "preset",
			Aliases: []string{"p"},
			Usage:   "Preset file providing defaults for every other option",
		},
		&cli.StringSliceFlag{
			Name:  "allowed-env",
			Usage: "Environment variables allowed in preset templates (can be repeated)",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Backend program speaking the stdio protocol, e.g. 'presskit engine'",
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "URL of a backend started with 'presskit serve'",
		},
	}
}

func compressArguments() []cli.Argument {
	return []cli.Argument{
		&cli.StringArg{
			Name:      "input",
			UsageText: "The file or directory to compress",
		},
	}
}

// buildConfiguration merges the preset, if any, with the command line. Flags
// set on the command line win over the preset.
func buildConfiguration(command *cli.Command) (state.Configuration, error) {
	var cfg state.Configuration

	if presetFile := command.String("preset"); presetFile != "" {
		p, err := preset.Load(afero.NewOsFs(), presetFile)
		if err != nil {
			return state.Configuration{}, err
		}
		req, err := preset.Resolve(p, command.StringSlice("allowed-env"))
		if err != nil {
			return state.Configuration{}, err
		}
		cfg = configurationFromRequest(req)
	}

	if command.IsSet("algorithm") {
		cfg.Algorithm = lo.ToPtr(command.String("algorithm"))
	}
	if command.IsSet("flag") {
		cfg.Flags = command.StringSlice("flag")
	}
	if input := command.StringArg("input"); input != "" {
		cfg.InputPath = input
	}
	if command.IsSet("output") {
		cfg.OutputPath = command.String("output")
	}

	if cfg.InputPath == "" {
		return state.Configuration{}, fmt.Errorf("no input provided")
	}
	if cfg.OutputPath == "" {
		return state.Configuration{}, fmt.Errorf("no output provided, use --output or a preset")
	}
	return cfg, nil
}

func configurationFromRequest(req v1.CompressionRequest) state.Configuration {
	return state.Configuration{
		Algorithm:  req.Algorithm,
		Flags:      req.Flags,
		InputPath:  req.InputPath,
		OutputPath: req.OutputPath,
	}
}

func buildBoundary(ctx context.Context, command *cli.Command, onEvent invoke.EventHandler) (invoke.Boundary, error) {
	logger := getLogger(ctx).Named("invoke")

	backend := command.String("backend")
	endpoint := command.String("endpoint")
	switch {
	case backend != "" && endpoint != "":
		return nil, fmt.Errorf("--backend and --endpoint are mutually exclusive")
	case endpoint != "":
		return invoke.NewHTTPBoundary(logger, endpoint, invoke.WithHTTPEvents(onEvent))
	case backend != "":
		return invoke.NewExecBoundary(logger, strings.Fields(backend), invoke.WithExecEvents(onEvent))
	default:
		dispatcher, err := resolveDispatcher(ctx, command)
		if err != nil {
			return nil, err
		}
		return invoke.NewLocalBoundary(dispatcher, onEvent), nil
	}
}
