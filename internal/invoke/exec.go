package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	v1 "github.com/presskit/presskit/apis/v1"
	"go.uber.org/zap"
)

// ExecBoundary starts the backend program once per call. The envelope is
// written to its stdin and newline-delimited messages are read from its stdout.
type ExecBoundary struct {
	logger  *zap.Logger
	program []string
	env     map[string]string
	onEvent EventHandler
}

type ExecOption func(*ExecBoundary)

func WithEnv(env map[string]string) ExecOption {
	return func(b *ExecBoundary) {
		b.env = env
	}
}

func WithExecEvents(onEvent EventHandler) ExecOption {
	return func(b *ExecBoundary) {
		b.onEvent = onEvent
	}
}

func NewExecBoundary(logger *zap.Logger, program []string, opts ...ExecOption) (*ExecBoundary, error) {
	if len(program) == 0 {
		return nil, fmt.Errorf("program is required")
	}
	b := &ExecBoundary{logger: logger, program: program}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *ExecBoundary) Invoke(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	body, err := encodeEnvelope(command, payload)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, b.program[0], b.program[1:]...)
	cmd.Env = os.Environ()
	for k, v := range b.env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Stdin = bytes.NewReader(append(body, '\n'))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to capture backend stdout: %w", err)
	}

	b.logger.Debug("starting backend process",
		zap.Strings("program", b.program),
		zap.String("command", command),
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start backend: %w", err)
	}

	result, readErr := readMessages(stdout, b.onEvent)
	var remoteErr *v1.RemoteError
	if readErr != nil && !errors.As(readErr, &remoteErr) && !errors.Is(readErr, errNoResult) {
		// The stream is unusable, stop the backend instead of reading on.
		_ = cmd.Process.Kill()
	}
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	b.logger.Debug("backend process exited",
		zap.Int("exit_code", cmd.ProcessState.ExitCode()),
	)
	if readErr == nil && waitErr != nil {
		b.logger.Warn("backend exited with an error after reporting a result", zap.Error(waitErr))
	}

	if readErr != nil {
		if errors.Is(readErr, errNoResult) && waitErr != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return nil, fmt.Errorf("backend failed: %w: %s", waitErr, msg)
			}
			return nil, fmt.Errorf("backend failed: %w", waitErr)
		}
		return nil, readErr
	}
	return result, nil
}
