package runners

import (
	"fmt"

	"github.com/presskit/presskit/internal/engine"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var execConfigs = []struct {
	cfg     ExecConfig
	aliases []string
}{
	{cfg: ExecConfig{Name: "zstd", Program: "zstd", Extension: "zst", Args: zstdArgs}},
	{cfg: ExecConfig{Name: "xz", Program: "xz", Extension: "xz", Args: xzArgs, StdoutToOutput: true}},
	{cfg: ExecConfig{Name: "7z", Program: "7z", Extension: "7z", Args: sevenZipArgs}, aliases: []string{"7zip", "sevenzip"}},
	{cfg: ExecConfig{Name: "zpaq", Program: "zpaq", Extension: "zpaq", Args: zpaqArgs}},
	{cfg: ExecConfig{Name: "paq8px", Program: "paq8px", Extension: "paq8px", Args: paq8pxArgs}},
}

// Register adds the external-program runners and the in-process codecs.
// The codecs read and write through fs, the external programs always use the
// host filesystem.
func Register(registry *engine.Registry, logger *zap.Logger, fs afero.Fs) error {
	for _, e := range execConfigs {
		runner, err := NewExecRunner(logger.Named(e.cfg.Name), e.cfg)
		if err != nil {
			return fmt.Errorf("failed to create %s runner: %w", e.cfg.Name, err)
		}
		registry.Register(runner, e.aliases...)
	}

	registry.Register(NewCodecRunner(logger.Named("gzip"), fs, GzipCodec), "gz")
	registry.Register(NewCodecRunner(logger.Named("lz4"), fs, Lz4Codec))
	registry.Register(NewCodecRunner(logger.Named("zstd-native"), fs, ZstdCodec))

	return nil
}
