package invoke

import (
	"context"
	"encoding/json"
	"fmt"

	v1 "github.com/presskit/presskit/apis/v1"
	"github.com/presskit/presskit/internal/engine"
)

// Dispatcher is the backend entry point LocalBoundary calls into.
type Dispatcher interface {
	Dispatch(ctx context.Context, req v1.CompressionRequest, events engine.EventSink) (v1.CompressionResponse, error)
}

// LocalBoundary runs the backend in the same process. The payload still
// passes through JSON so that it is handled exactly as over a real boundary.
type LocalBoundary struct {
	dispatcher Dispatcher
	onEvent    EventHandler
}

func NewLocalBoundary(dispatcher Dispatcher, onEvent EventHandler) *LocalBoundary {
	return &LocalBoundary{dispatcher: dispatcher, onEvent: onEvent}
}

func (b *LocalBoundary) Invoke(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	if command != v1.StartCompressionCommand {
		return nil, &v1.RemoteError{Message: fmt.Sprintf("unknown command %q", command)}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	var req v1.CompressionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, &v1.RemoteError{Message: fmt.Sprintf("invalid payload: %v", err)}
	}

	var events engine.EventSink
	if b.onEvent != nil {
		events = engine.EventSinkFunc(b.onEvent)
	}

	resp, err := b.dispatcher.Dispatch(ctx, req, events)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}
