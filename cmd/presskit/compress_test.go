package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/presskit/presskit/internal/state"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func runBuildConfiguration(t *testing.T, args ...string) (state.Configuration, error) {
	t.Helper()

	var (
		cfg    state.Configuration
		cfgErr error
	)
	cmd := &cli.Command{
		Name:      "compress",
		Flags:     compressFlags(),
		Arguments: compressArguments(),
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, cfgErr = buildConfiguration(command)
			return nil
		},
	}
	require.NoError(t, cmd.Run(t.Context(), append([]string{"compress"}, args...)))
	return cfg, cfgErr
}

func TestBuildConfiguration(t *testing.T) {
	presetFile := filepath.Join(t.TempDir(), "nightly.yaml")
	require.NoError(t, os.WriteFile(presetFile, []byte(`
kind: Preset
metadata:
  name: nightly
spec:
  algorithm: xz
  flags: ["-9e"]
  inputPath: /var/log
  outputPath: /backups/${PRESET_NAME}
`), 0644))

	tests := []struct {
		name       string
		args       []string
		want       state.Configuration
		errContain string
	}{
		{
			name: "command line only",
			args: []string{"--algorithm", "zstd", "--flag=-19", "--flag=--long", "-o", "/out", "/data"},
			want: state.Configuration{
				Algorithm:  lo.ToPtr("zstd"),
				Flags:      []string{"-19", "--long"},
				InputPath:  "/data",
				OutputPath: "/out",
			},
		},
		{
			name: "algorithm left unset",
			args: []string{"-o", "/out", "/data"},
			want: state.Configuration{InputPath: "/data", OutputPath: "/out"},
		},
		{
			name: "preset",
			args: []string{"--preset", presetFile},
			want: state.Configuration{
				Algorithm:  lo.ToPtr("xz"),
				Flags:      []string{"-9e"},
				InputPath:  "/var/log",
				OutputPath: "/backups/nightly",
			},
		},
		{
			name: "command line overrides preset",
			args: []string{"--preset", presetFile, "--algorithm", "7z", "/srv"},
			want: state.Configuration{
				Algorithm:  lo.ToPtr("7z"),
				Flags:      []string{"-9e"},
				InputPath:  "/srv",
				OutputPath: "/backups/nightly",
			},
		},
		{
			name:       "no input",
			args:       []string{"-o", "/out"},
			errContain: "no input provided",
		},
		{
			name:       "no output",
			args:       []string{"/data"},
			errContain: "no output provided",
		},
		{
			name:       "missing preset",
			args:       []string{"--preset", filepath.Join(t.TempDir(), "missing.yaml")},
			errContain: "failed to read preset file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := runBuildConfiguration(t, tt.args...)
			if tt.errContain != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.errContain)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}
