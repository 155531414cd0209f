package invoke

import (
	"os"
	"path/filepath"
	"testing"

	v1 "github.com/presskit/presskit/apis/v1"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewExecBoundary_RequiresProgram(t *testing.T) {
	_, err := NewExecBoundary(zap.NewNop(), nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "program is required")
}

func TestExecBoundary_StreamsEventsAndResult(t *testing.T) {
	capture := filepath.Join(t.TempDir(), "envelope.json")
	script := `cat > "$PRESSKIT_CAPTURE"
printf '%s\n' '{"event":{"jobId":"1","algorithm":"zstd","event_type":"progress","message":"10%","percentage":10}}'
printf '%s\n' '{"result":{"jobId":"1","algorithm":"zstd","output":"/out/a.zst","status":"success"}}'`

	var events []v1.CompressionEvent
	boundary, err := NewExecBoundary(zap.NewNop(), []string{"sh", "-c", script},
		WithEnv(map[string]string{"PRESSKIT_CAPTURE": capture}),
		WithExecEvents(func(e v1.CompressionEvent) {
			events = append(events, e)
		}),
	)
	require.NoError(t, err)

	resp, err := StartCompression(t.Context(), zap.NewNop(), boundary, lo.ToPtr("zstd"), []string{"-3"}, "/in", "/out")
	require.NoError(t, err)
	assert.Equal(t, "/out/a.zst", resp.Output)
	assert.Equal(t, v1.StatusSuccess, resp.Status)

	sent, err := os.ReadFile(capture)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"command":"start_compression","payload":{"algorithm":"zstd","flags":["-3"],"inputPath":"/in","outputPath":"/out"}}`,
		string(sent))

	require.Len(t, events, 1)
	assert.Equal(t, "10%", events[0].Message)
}

func TestExecBoundary_RemoteError(t *testing.T) {
	script := `cat >/dev/null; printf '%s\n' '{"error":{"message":"input file does not exist: /in"}}'`
	boundary, err := NewExecBoundary(zap.NewNop(), []string{"sh", "-c", script})
	require.NoError(t, err)

	_, err = StartCompression(t.Context(), zap.NewNop(), boundary, nil, nil, "/in", "/out")
	var remote *v1.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "input file does not exist: /in", remote.Message)
}

func TestExecBoundary_BackendCrash(t *testing.T) {
	script := `cat >/dev/null; echo 'panic: something broke' >&2; exit 2`
	boundary, err := NewExecBoundary(zap.NewNop(), []string{"sh", "-c", script})
	require.NoError(t, err)

	_, err = boundary.Invoke(t.Context(), v1.StartCompressionCommand, v1.CompressionRequest{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "backend failed")
	assert.ErrorContains(t, err, "panic: something broke")
}

func TestExecBoundary_Env(t *testing.T) {
	script := `cat >/dev/null; printf '{"result":{"output":"%s","status":"success"}}\n' "$PRESSKIT_TEST_VALUE"`
	boundary, err := NewExecBoundary(zap.NewNop(), []string{"sh", "-c", script}, WithEnv(map[string]string{"PRESSKIT_TEST_VALUE": "from-env"}))
	require.NoError(t, err)

	resp, err := StartCompression(t.Context(), zap.NewNop(), boundary, nil, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, "from-env", resp.Output)
}
