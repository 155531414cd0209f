package invoke

import (
	"context"
	"errors"
	"testing"

	v1 "github.com/presskit/presskit/apis/v1"
	"github.com/presskit/presskit/internal/engine"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDispatcher struct {
	requests []v1.CompressionRequest
	events   []v1.CompressionEvent
	resp     v1.CompressionResponse
	err      error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req v1.CompressionRequest, events engine.EventSink) (v1.CompressionResponse, error) {
	f.requests = append(f.requests, req)
	for _, e := range f.events {
		if events != nil {
			events.Emit(e)
		}
	}
	return f.resp, f.err
}

func TestLocalBoundary(t *testing.T) {
	d := &fakeDispatcher{
		resp:   v1.CompressionResponse{JobID: "j", Algorithm: "xz", Output: "/o/a.xz", Status: v1.StatusSuccess},
		events: []v1.CompressionEvent{{EventType: v1.EventStatus, Message: "Starting xz compression..."}},
	}
	var events []v1.CompressionEvent
	boundary := NewLocalBoundary(d, func(e v1.CompressionEvent) { events = append(events, e) })

	resp, err := StartCompression(t.Context(), zap.NewNop(), boundary, lo.ToPtr("xz"), []string{"-9e"}, "/in", "/o")
	require.NoError(t, err)
	assert.Equal(t, "/o/a.xz", resp.Output)

	require.Len(t, d.requests, 1)
	assert.Equal(t, "xz", *d.requests[0].Algorithm)
	assert.Equal(t, []string{"-9e"}, d.requests[0].Flags)
	assert.Equal(t, "/in", d.requests[0].InputPath)
	assert.Equal(t, "/o", d.requests[0].OutputPath)
	assert.Len(t, events, 1)
}

func TestLocalBoundary_DispatchErrorIsReturnedAsIs(t *testing.T) {
	boom := errors.New("output folder does not exist or is not a directory: /o")
	boundary := NewLocalBoundary(&fakeDispatcher{err: boom}, nil)

	_, err := StartCompression(t.Context(), zap.NewNop(), boundary, nil, nil, "/in", "/o")
	assert.True(t, err == boom)
}

func TestLocalBoundary_UnknownCommand(t *testing.T) {
	boundary := NewLocalBoundary(&fakeDispatcher{}, nil)

	_, err := boundary.Invoke(t.Context(), "stop_compression", nil)
	var remote *v1.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, `unknown command "stop_compression"`, remote.Message)
}
