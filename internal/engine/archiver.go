package engine

import "context"

// Packer bundles a directory into a single file so that single-stream
// runners can compress it.
type Packer interface {
	// Pack writes an intermediate archive of dir and returns its path. The
	// caller removes the file once it is no longer needed.
	Pack(ctx context.Context, dir string) (string, error)
}
