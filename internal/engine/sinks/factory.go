package sinks

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/presskit/presskit/internal/engine"
)

// NewFactory resolves destination URLs. Supported schemes are s3:// and file://.
func NewFactory(s3Opts S3Options) engine.SinkFactory {
	return func(ctx context.Context, destination string) (engine.Sink, error) {
		u, err := url.Parse(destination)
		if err != nil {
			return nil, fmt.Errorf("invalid destination %q: %w", destination, err)
		}

		switch u.Scheme {
		case "s3":
			return NewS3Sink(ctx, u.Host, strings.TrimPrefix(u.Path, "/"), s3Opts)
		case "file":
			return NewFilesystemSinkFromPath(u.Path)
		default:
			return nil, fmt.Errorf("unsupported destination scheme %q", u.Scheme)
		}
	}
}
