package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	v1 "github.com/presskit/presskit/apis/v1"
	"github.com/presskit/presskit/internal/engine"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	registry *engine.Registry
	requests []v1.CompressionRequest
	events   []v1.CompressionEvent
	resp     v1.CompressionResponse
	err      error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req v1.CompressionRequest, events engine.EventSink) (v1.CompressionResponse, error) {
	f.requests = append(f.requests, req)
	for _, e := range f.events {
		events.Emit(e)
	}
	return f.resp, f.err
}

func (f *fakeDispatcher) Registry() *engine.Registry {
	if f.registry == nil {
		return engine.NewRegistry()
	}
	return f.registry
}

type stubRunner struct {
	name, ext string
}

func (r stubRunner) Name() string      { return r.name }
func (r stubRunner) Kind() string      { return "stub" }
func (r stubRunner) Extension() string { return r.ext }
func (r stubRunner) Run(context.Context, engine.RunRequest, engine.ProgressFunc) error {
	return nil
}

func decodeMessages(t *testing.T, r io.Reader) []v1.Message {
	t.Helper()

	var messages []v1.Message
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var m v1.Message
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		messages = append(messages, m)
	}
	require.NoError(t, scanner.Err())
	return messages
}

func TestHandle(t *testing.T) {
	success := v1.CompressionResponse{JobID: "j", Algorithm: "zstd", Output: "/o/a.zst", Status: v1.StatusSuccess}
	progress := v1.CompressionEvent{JobID: "j", EventType: v1.EventProgress, Message: "50%", Percentage: lo.ToPtr(float32(50))}

	tests := []struct {
		name       string
		env        v1.Envelope
		dispatcher *fakeDispatcher
		expectErr  string
		expectRes  bool
		dispatched int
	}{
		{
			name:       "success",
			env:        v1.Envelope{Command: v1.StartCompressionCommand, Payload: json.RawMessage(`{"algorithm":"zstd","flags":[],"inputPath":"/i","outputPath":"/o"}`)},
			dispatcher: &fakeDispatcher{resp: success, events: []v1.CompressionEvent{progress}},
			expectRes:  true,
			dispatched: 1,
		},
		{
			name:       "dispatch failure",
			env:        v1.Envelope{Command: v1.StartCompressionCommand, Payload: json.RawMessage(`{}`)},
			dispatcher: &fakeDispatcher{err: errors.New("input file does not exist: no input path set")},
			expectErr:  "input file does not exist: no input path set",
			dispatched: 1,
		},
		{
			name:       "missing command",
			env:        v1.Envelope{Payload: json.RawMessage(`{}`)},
			dispatcher: &fakeDispatcher{},
			expectErr:  "invalid envelope: missing command",
		},
		{
			name:       "unknown command",
			env:        v1.Envelope{Command: "cancel_compression", Payload: json.RawMessage(`{}`)},
			dispatcher: &fakeDispatcher{},
			expectErr:  `unknown command "cancel_compression"`,
		},
		{
			name:       "missing payload",
			env:        v1.Envelope{Command: v1.StartCompressionCommand},
			dispatcher: &fakeDispatcher{},
			expectErr:  `invalid envelope: command "start_compression" has no payload`,
		},
		{
			name:       "invalid payload",
			env:        v1.Envelope{Command: v1.StartCompressionCommand, Payload: json.RawMessage(`{"flags":"-9"}`)},
			dispatcher: &fakeDispatcher{},
			expectErr:  "invalid payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var messages []v1.Message
			err := handle(t.Context(), zapNop, tt.dispatcher, tt.env, func(m v1.Message) error {
				messages = append(messages, m)
				return nil
			})
			require.NoError(t, err)
			require.NotEmpty(t, messages)
			assert.Len(t, tt.dispatcher.requests, tt.dispatched)

			last := messages[len(messages)-1]
			if tt.expectRes {
				require.NotNil(t, last.Result)
				assert.Equal(t, success, *last.Result)
				require.Len(t, messages, 2)
				assert.Equal(t, progress, *messages[0].Event)
				return
			}
			require.NotNil(t, last.Error)
			assert.Contains(t, last.Error.Message, tt.expectErr)
		})
	}
}

func TestHandle_StopsWritingEventsAfterWriteFailure(t *testing.T) {
	d := &fakeDispatcher{
		resp:   v1.CompressionResponse{Status: v1.StatusSuccess},
		events: []v1.CompressionEvent{{Message: "1"}, {Message: "2"}},
	}
	writes := 0
	err := handle(t.Context(), zapNop, d, v1.Envelope{Command: v1.StartCompressionCommand, Payload: json.RawMessage(`{}`)}, func(v1.Message) error {
		writes++
		return io.ErrClosedPipe
	})

	require.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Equal(t, 1, writes)
}

func TestServeStdio(t *testing.T) {
	d := &fakeDispatcher{resp: v1.CompressionResponse{JobID: "j", Status: v1.StatusSuccess}}
	in := strings.NewReader(`{"command":"start_compression","payload":{"algorithm":null,"flags":["-3"],"inputPath":"/i","outputPath":"/o"}}` + "\n")
	var out strings.Builder

	require.NoError(t, ServeStdio(t.Context(), zapNop, d, in, &out))

	messages := decodeMessages(t, strings.NewReader(out.String()))
	require.Len(t, messages, 1)
	require.NotNil(t, messages[0].Result)
	assert.Equal(t, "j", messages[0].Result.JobID)

	require.Len(t, d.requests, 1)
	assert.Nil(t, d.requests[0].Algorithm)
	assert.Equal(t, []string{"-3"}, d.requests[0].Flags)
}

func TestServeStdio_EnvelopeWithoutPayload(t *testing.T) {
	d := &fakeDispatcher{}
	var out strings.Builder

	require.NoError(t, ServeStdio(t.Context(), zapNop, d, strings.NewReader(`{"command":"start_compression"}`+"\n"), &out))

	messages := decodeMessages(t, strings.NewReader(out.String()))
	require.Len(t, messages, 1)
	require.NotNil(t, messages[0].Error)
	assert.Contains(t, messages[0].Error.Message, "has no payload")
	assert.Empty(t, d.requests)
}

func TestServeStdio_BrokenEnvelope(t *testing.T) {
	var out strings.Builder
	err := ServeStdio(t.Context(), zapNop, &fakeDispatcher{}, strings.NewReader("{"), &out)
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to decode envelope")

	messages := decodeMessages(t, strings.NewReader(out.String()))
	require.Len(t, messages, 1)
	require.NotNil(t, messages[0].Error)
	assert.Contains(t, messages[0].Error.Message, "invalid envelope")
}
