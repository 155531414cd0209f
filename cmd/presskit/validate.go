package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/presskit/presskit/internal/preset"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var validateCommand = &cli.Command{
	Name:  "validate",
	Usage: "Validate a preset file",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "allowed-env",
			Usage: "Environment variables allowed in preset templates (can be repeated)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "preset",
			UsageText: "The preset file to validate",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		presetFilename := command.StringArg("preset")
		if presetFilename == "" {
			return fmt.Errorf("no preset file provided")
		}

		logger = logger.With(zap.String("preset_filename", presetFilename))
		logger.Debug("validating preset file")

		p, err := preset.Load(afero.NewOsFs(), presetFilename)
		if err != nil {
			fmt.Fprintln(command.Root().Writer, formatValidationError(err))
			return fmt.Errorf("preset file '%s' is invalid", presetFilename)
		}

		if _, err := preset.Resolve(p, command.StringSlice("allowed-env")); err != nil {
			return fmt.Errorf("failed to resolve preset: %w", err)
		}

		fmt.Fprintf(command.Root().Writer, "✓ Preset file '%s' is valid\n", presetFilename)
		return nil
	},
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("preset file has %d validation error(s):", len(validationErrs)))
		for _, fe := range validationErrs {
			sb.WriteString(fmt.Sprintf("\n  • %s: failed '%s' validation", fe.Namespace(), fe.Tag()))
			if fe.Param() != "" {
				sb.WriteString(fmt.Sprintf(" (param: %s)", fe.Param()))
			}
		}
		return errors.New(sb.String())
	}
	return err
}
