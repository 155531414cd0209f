package archivers

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/presskit/presskit/internal/engine"
	"github.com/spf13/afero"
)

// TarPacker writes uncompressed tar archives of directories. The archive is
// placed next to the directory and is hidden by its name prefix.
type TarPacker struct {
	fs afero.Fs
}

func NewTarPacker(fs afero.Fs) *TarPacker {
	return &TarPacker{fs: fs}
}

var _ engine.Packer = (*TarPacker)(nil)

// Pack archives dir into <parent>/.tmp_<name>.tar with entries rooted at
// <name>/, the layout produced by "tar -cf out -C parent name".
func (p *TarPacker) Pack(ctx context.Context, dir string) (_ string, err error) {
	dir = filepath.Clean(dir)
	info, err := p.fs.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("input path does not exist: %s", dir)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("input path is not a directory: %s", dir)
	}

	parent := filepath.Dir(dir)
	tarPath := filepath.Join(parent, engine.IntermediateName(dir))

	f, err := p.fs.Create(tarPath)
	if err != nil {
		return "", fmt.Errorf("failed to create intermediate tar: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
		if err != nil {
			_ = p.fs.Remove(tarPath)
		}
	}()

	tw := tar.NewWriter(f)
	walkErr := afero.Walk(p.fs, dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}
		return p.addEntry(tw, parent, path, fi)
	})
	if walkErr != nil {
		return "", fmt.Errorf("failed to pack %s: %w", dir, walkErr)
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("failed to close tar writer: %w", err)
	}

	return tarPath, nil
}

func (p *TarPacker) addEntry(tw *tar.Writer, root, path string, fi os.FileInfo) error {
	var link string
	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		// Links are stored as links, never followed.
		lr, ok := p.fs.(afero.LinkReader)
		if !ok {
			return nil
		}
		target, err := lr.ReadlinkIfPossible(path)
		if err != nil {
			return fmt.Errorf("failed to read link %s: %w", path, err)
		}
		link = target
	case !fi.IsDir() && !fi.Mode().IsRegular():
		// Sockets, devices and pipes have no archivable content.
		return nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	header, err := tar.FileInfoHeader(fi, link)
	if err != nil {
		return fmt.Errorf("failed to build tar header for %s: %w", path, err)
	}
	header.Name = filepath.ToSlash(rel)
	if fi.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header: %w", err)
	}
	if header.Typeflag != tar.TypeReg {
		return nil
	}

	src, err := p.fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	if _, err := io.Copy(tw, src); err != nil {
		return fmt.Errorf("failed to write tar content: %w", err)
	}
	return nil
}
