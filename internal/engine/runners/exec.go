package runners

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/presskit/presskit/internal/engine"
	"go.uber.org/zap"
)

const ExecRunnerKind = "exec"

// ExecConfig describes an external compression program.
type ExecConfig struct {
	Name      string
	Program   string
	Extension string
	// Args builds the argument list. Flags are passed through verbatim and in order.
	Args func(flags []string, input, output string) []string
	// StdoutToOutput writes the program's stdout to the output file.
	StdoutToOutput bool
}

type ExecRunner struct {
	logger *zap.Logger
	cfg    ExecConfig
}

func NewExecRunner(logger *zap.Logger, cfg ExecConfig) (*ExecRunner, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if cfg.Program == "" {
		return nil, fmt.Errorf("program is required")
	}
	if cfg.Args == nil {
		return nil, fmt.Errorf("args builder is required")
	}
	if cfg.Extension == "" {
		return nil, fmt.Errorf("extension is required")
	}
	return &ExecRunner{logger: logger, cfg: cfg}, nil
}

func (r *ExecRunner) Name() string      { return r.cfg.Name }
func (r *ExecRunner) Kind() string      { return ExecRunnerKind }
func (r *ExecRunner) Extension() string { return r.cfg.Extension }

func (r *ExecRunner) Run(ctx context.Context, req engine.RunRequest, progress engine.ProgressFunc) (err error) {
	args := r.cfg.Args(req.Flags, req.InputPath, req.OutputPath)
	cmd := exec.CommandContext(ctx, r.cfg.Program, args...)

	if r.cfg.StdoutToOutput {
		out, createErr := os.Create(req.OutputPath)
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() {
			err = errors.Join(err, out.Close())
			if err != nil {
				_ = os.Remove(req.OutputPath)
			}
		}()
		cmd.Stdout = out
	} else {
		cmd.Stdout = io.Discard
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to capture stderr: %w", err)
	}

	r.logger.Debug("starting external compressor",
		zap.String("program", r.cfg.Program),
		zap.Strings("args", args),
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%s command not found. Please install %s and ensure it is in your PATH", r.cfg.Program, r.cfg.Program)
		}
		return fmt.Errorf("failed to start %s: %w", r.cfg.Program, err)
	}

	var collected strings.Builder
	scanner := bufio.NewScanner(stderr)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		collected.WriteString(line)
		collected.WriteByte('\n')
		if progress != nil {
			progress(line, engine.ParsePercentage(line))
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Keep the pipe drained so the child cannot block on a full stderr.
		_, _ = io.Copy(io.Discard, stderr)
	}

	waitErr := cmd.Wait()
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	r.logger.Debug("external compressor finished",
		zap.String("program", r.cfg.Program),
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", time.Since(start)),
	)

	if waitErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s interrupted: %w", r.cfg.Program, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return fmt.Errorf("%s exited with status %d\n\nstderr:\n%s", r.cfg.Program, exitErr.ExitCode(), collected.String())
		}
		return fmt.Errorf("failed to wait for %s: %w", r.cfg.Program, waitErr)
	}
	if scanErr != nil {
		return fmt.Errorf("error reading stderr: %w", scanErr)
	}

	return nil
}

// scanLines splits on either '\n' or '\r'. Progress meters redraw a line
// with '\r', so each redraw becomes its own token.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func zstdArgs(flags []string, input, output string) []string {
	args := []string{"--progress", "-f"}
	args = append(args, flags...)
	return append(args, input, "-o", output)
}

func xzArgs(flags []string, input, _ string) []string {
	args := []string{"-c"}
	args = append(args, flags...)
	return append(args, input)
}

func sevenZipArgs(flags []string, input, output string) []string {
	args := []string{"a", "-y", "-bsp2"}
	args = append(args, flags...)
	return append(args, output, input)
}

// zpaq takes its options after the file list.
func zpaqArgs(flags []string, input, output string) []string {
	args := []string{"a", output, input}
	return append(args, flags...)
}

func paq8pxArgs(flags []string, input, output string) []string {
	args := slices.Clone(flags)
	return append(args, input, output)
}
