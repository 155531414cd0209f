package engine

import (
	"context"
	"io"
)

// Sink receives finished archives for destinations that are not a local directory.
type Sink interface {
	Named
	Closer
	Write(ctx context.Context, path string, data io.Reader) error
}

// SinkFactory builds a sink for a destination URL such as s3://bucket/prefix.
type SinkFactory func(ctx context.Context, destination string) (Sink, error)
