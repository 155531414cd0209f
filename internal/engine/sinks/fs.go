package sinks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/presskit/presskit/internal/engine"
	"github.com/spf13/afero"
)

const partialSuffix = ".partial"

// FilesystemSink copies finished archives below a base directory. Files are
// written under a ".partial" name and renamed once complete, so a reader never
// sees a truncated archive under its final name.
type FilesystemSink struct {
	fs afero.Fs
}

func NewFilesystemSink(fs afero.Fs) *FilesystemSink {
	return &FilesystemSink{fs: fs}
}

// NewFilesystemSinkFromPath roots a sink at path on the host filesystem,
// creating the directory when missing.
func NewFilesystemSinkFromPath(path string) (*FilesystemSink, error) {
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(cleanPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", cleanPath, err)
	}
	return NewFilesystemSink(afero.NewBasePathFs(afero.NewOsFs(), cleanPath)), nil
}

var _ engine.Sink = (*FilesystemSink)(nil)

func (s *FilesystemSink) Name() string {
	return fmt.Sprintf("filesystem(%s)", s.fs.Name())
}

func (s *FilesystemSink) Kind() string {
	return "filesystem"
}

func (s *FilesystemSink) Write(ctx context.Context, path string, data io.Reader) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	partial := path + partialSuffix
	if err := s.copyTo(ctx, partial, data); err != nil {
		_ = s.fs.Remove(partial)
		return err
	}
	if err := s.fs.Rename(partial, path); err != nil {
		_ = s.fs.Remove(partial)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

func (s *FilesystemSink) copyTo(ctx context.Context, path string, data io.Reader) (err error) {
	f, err := s.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

func (s *FilesystemSink) Close(ctx context.Context) error {
	return nil
}
