package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	v1 "github.com/presskit/presskit/apis/v1"
	"go.uber.org/zap"
)

// ServeStdio reads a single envelope from r and writes newline-delimited
// messages to w. Failures of the job itself are reported in-band; the
// returned error covers only broken input or output streams.
func ServeStdio(ctx context.Context, logger *zap.Logger, d Dispatcher, r io.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	write := func(m v1.Message) error {
		return enc.Encode(m)
	}

	var env v1.Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		if werr := write(v1.Message{Error: &v1.RemoteError{Message: fmt.Sprintf("invalid envelope: %v", err)}}); werr != nil {
			return werr
		}
		return fmt.Errorf("failed to decode envelope: %w", err)
	}

	logger.Debug("received call", zap.String("command", env.Command))
	return handle(ctx, logger, d, env, write)
}
