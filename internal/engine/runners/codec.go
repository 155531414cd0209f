package runners

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/presskit/presskit/internal/engine"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const CodecRunnerKind = "codec"

// UnsupportedFlagError is returned by in-process runners for flags they do not understand.
type UnsupportedFlagError struct {
	Runner string
	Flag   string
}

func (e *UnsupportedFlagError) Error() string {
	return fmt.Sprintf("%s does not support flag %q (only compression levels such as -3 are accepted)", e.Runner, e.Flag)
}

// Codec is an in-process stream compressor.
type Codec struct {
	Name      string
	Extension string
	MinLevel  int
	MaxLevel  int
	// DefaultLevel is passed to NewWriter when no level flag is given.
	DefaultLevel int
	NewWriter    func(w io.Writer, level int) (io.WriteCloser, error)
}

var (
	GzipCodec = Codec{
		Name:         "gzip",
		Extension:    "gz",
		MinLevel:     gzip.BestSpeed,
		MaxLevel:     gzip.BestCompression,
		DefaultLevel: gzip.DefaultCompression,
		NewWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, level)
		},
	}

	ZstdCodec = Codec{
		Name:         "zstd-native",
		Extension:    "zst",
		MinLevel:     1,
		MaxLevel:     22,
		DefaultLevel: 3,
		NewWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		},
	}

	Lz4Codec = Codec{
		Name:         "lz4",
		Extension:    "lz4",
		MinLevel:     1,
		MaxLevel:     9,
		DefaultLevel: 0,
		NewWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			zw := lz4.NewWriter(w)
			if err := zw.Apply(lz4.CompressionLevelOption(lz4Levels[level])); err != nil {
				return nil, err
			}
			return zw, nil
		},
	}

	lz4Levels = []lz4.CompressionLevel{
		lz4.Fast,
		lz4.Level1, lz4.Level2, lz4.Level3,
		lz4.Level4, lz4.Level5, lz4.Level6,
		lz4.Level7, lz4.Level8, lz4.Level9,
	}
)

type CodecRunner struct {
	logger *zap.Logger
	fs     afero.Fs
	codec  Codec
}

func NewCodecRunner(logger *zap.Logger, fs afero.Fs, codec Codec) *CodecRunner {
	return &CodecRunner{logger: logger, fs: fs, codec: codec}
}

func (r *CodecRunner) Name() string      { return r.codec.Name }
func (r *CodecRunner) Kind() string      { return CodecRunnerKind }
func (r *CodecRunner) Extension() string { return r.codec.Extension }

// Level resolves the compression level from flags. The last level flag wins
// and values outside the codec's range are clamped.
func (r *CodecRunner) Level(flags []string) (int, error) {
	level := r.codec.DefaultLevel
	for _, flag := range flags {
		n, ok := parseLevelFlag(flag)
		if !ok {
			return 0, &UnsupportedFlagError{Runner: r.codec.Name, Flag: flag}
		}
		level = min(max(n, r.codec.MinLevel), r.codec.MaxLevel)
	}
	return level, nil
}

func parseLevelFlag(flag string) (int, bool) {
	digits, ok := strings.CutPrefix(flag, "-")
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (r *CodecRunner) Run(ctx context.Context, req engine.RunRequest, progress engine.ProgressFunc) (err error) {
	level, err := r.Level(req.Flags)
	if err != nil {
		return err
	}

	in, err := r.fs.Open(req.InputPath)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat input: %w", err)
	}

	out, err := r.fs.Create(req.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		err = errors.Join(err, out.Close())
		if err != nil {
			_ = r.fs.Remove(req.OutputPath)
		}
	}()

	w, err := r.codec.NewWriter(out, level)
	if err != nil {
		return fmt.Errorf("failed to create %s writer: %w", r.codec.Name, err)
	}

	r.logger.Debug("compressing in process",
		zap.String("codec", r.codec.Name),
		zap.Int("level", level),
		zap.Int64("size", info.Size()),
	)

	counter := &progressReader{ctx: ctx, r: in, total: info.Size(), last: -1, report: progress}
	if _, err := io.Copy(w, counter); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s stream: %w", r.codec.Name, err)
	}
	counter.finish()

	return nil
}

// progressReader reports whole-percent changes while it is read and stops
// early once ctx is done.
type progressReader struct {
	ctx    context.Context
	r      io.Reader
	read   int64
	total  int64
	last   int
	report engine.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		p.emit(int(p.read * 100 / p.total))
	}
	return n, err
}

func (p *progressReader) finish() {
	p.emit(100)
}

func (p *progressReader) emit(pct int) {
	pct = min(pct, 100)
	if p.report == nil || pct == p.last {
		return
	}
	p.last = pct
	v := float32(pct)
	p.report(fmt.Sprintf("%d%%", pct), &v)
}
