package main

import (
	"context"
	"fmt"

	"github.com/presskit/presskit/internal/engine"
	"github.com/presskit/presskit/internal/engine/archivers"
	"github.com/presskit/presskit/internal/engine/runners"
	"github.com/presskit/presskit/internal/engine/sinks"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// backendFlags configure the in-process engine used by compress, engine and serve.
var backendFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "default-algorithm",
		Value: engine.DefaultAlgorithm,
		Usage: "Algorithm used when a request does not name one",
	},
	&cli.StringFlag{
		Name:    "s3-region",
		Usage:   "Region for s3:// destinations",
		Sources: cli.EnvVars("AWS_REGION"),
	},
	&cli.StringFlag{
		Name:  "s3-endpoint",
		Usage: "Custom endpoint for S3-compatible storage",
	},
	&cli.StringFlag{
		Name:    "s3-access-key-id",
		Usage:   "Static access key, the default credential chain is used when empty",
		Sources: cli.EnvVars("PRESSKIT_S3_ACCESS_KEY_ID"),
	},
	&cli.StringFlag{
		Name:    "s3-secret-access-key",
		Usage:   "Static secret key",
		Sources: cli.EnvVars("PRESSKIT_S3_SECRET_ACCESS_KEY"),
	},
	&cli.BoolFlag{
		Name:  "s3-force-path-style",
		Usage: "Use path-style addressing, needed by most S3-compatible servers",
	},
}

type backendConfig struct {
	DefaultAlgorithm string
	S3               sinks.S3Options
}

func backendConfigFromCommand(command *cli.Command) backendConfig {
	return backendConfig{
		DefaultAlgorithm: command.String("default-algorithm"),
		S3: sinks.S3Options{
			Region:          command.String("s3-region"),
			Endpoint:        command.String("s3-endpoint"),
			AccessKeyID:     command.String("s3-access-key-id"),
			SecretAccessKey: command.String("s3-secret-access-key"),
			ForcePathStyle:  command.Bool("s3-force-path-style"),
		},
	}
}

// buildContainer registers the engine dependencies. They are created lazily,
// so front-ends that talk to a remote backend never build a dispatcher.
func buildContainer(logger *zap.Logger, cfg backendConfig) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, logger)
	do.ProvideValue[afero.Fs](injector, afero.NewOsFs())

	do.Provide(injector, func(i do.Injector) (*engine.Registry, error) {
		log := do.MustInvoke[*zap.Logger](i)
		fs := do.MustInvoke[afero.Fs](i)

		registry := engine.NewRegistry()
		if err := runners.Register(registry, log.Named("runners"), fs); err != nil {
			return nil, fmt.Errorf("failed to register runners: %w", err)
		}
		return registry, nil
	})

	do.Provide(injector, func(i do.Injector) (*engine.Dispatcher, error) {
		log := do.MustInvoke[*zap.Logger](i)
		fs := do.MustInvoke[afero.Fs](i)

		registry, err := do.Invoke[*engine.Registry](i)
		if err != nil {
			return nil, err
		}

		return engine.NewDispatcher(log.Named("engine"), engine.Config{
			Fs:               fs,
			Registry:         registry,
			Packer:           archivers.NewTarPacker(fs),
			Sinks:            sinks.NewFactory(cfg.S3),
			DefaultAlgorithm: cfg.DefaultAlgorithm,
		})
	})

	return injector
}

func resolveDispatcher(ctx context.Context, command *cli.Command) (*engine.Dispatcher, error) {
	injector := buildContainer(getLogger(ctx), backendConfigFromCommand(command))

	dispatcher, err := do.Invoke[*engine.Dispatcher](injector)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	return dispatcher, nil
}
