package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	v1 "github.com/presskit/presskit/apis/v1"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type Config struct {
	Fs       afero.Fs
	Registry *Registry
	Packer   Packer
	// Sinks handles destination URLs. Without it only local directories are accepted.
	Sinks SinkFactory
	// DefaultAlgorithm is used when a request carries no algorithm.
	DefaultAlgorithm string
	// Now is overridden in tests.
	Now func() time.Time
}

// Dispatcher is the backend side of start_compression.
type Dispatcher struct {
	logger           *zap.Logger
	fs               afero.Fs
	registry         *Registry
	packer           Packer
	sinks            SinkFactory
	defaultAlgorithm string
	now              func() time.Time
}

func NewDispatcher(logger *zap.Logger, cfg Config) (*Dispatcher, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Packer == nil {
		return nil, fmt.Errorf("packer is required")
	}

	d := &Dispatcher{
		logger:           logger,
		fs:               cfg.Fs,
		registry:         cfg.Registry,
		packer:           cfg.Packer,
		sinks:            cfg.Sinks,
		defaultAlgorithm: cfg.DefaultAlgorithm,
		now:              cfg.Now,
	}
	if d.fs == nil {
		d.fs = afero.NewOsFs()
	}
	if d.defaultAlgorithm == "" {
		d.defaultAlgorithm = DefaultAlgorithm
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs one compression job. Events are sent to events as the job
// progresses and always end with exactly one success or error event.
func (d *Dispatcher) Dispatch(ctx context.Context, req v1.CompressionRequest, events EventSink) (v1.CompressionResponse, error) {
	if events == nil {
		events = discardEvents{}
	}

	algorithm := d.defaultAlgorithm
	if req.Algorithm != nil {
		algorithm = *req.Algorithm
	}
	algorithm = strings.ToLower(algorithm)

	jobID := uuid.NewString()
	logger := d.logger.With(zap.String("job_id", jobID), zap.String("algorithm", algorithm))

	emit := func(eventType, message string, percentage *float32) {
		events.Emit(v1.CompressionEvent{
			JobID:      jobID,
			Algorithm:  algorithm,
			EventType:  eventType,
			Message:    message,
			Percentage: percentage,
		})
	}

	logger.Info("dispatching compression job",
		zap.Strings("flags", req.Flags),
		zap.String("input_path", req.InputPath),
		zap.String("output_path", req.OutputPath),
	)

	start := time.Now()
	output, err := d.run(ctx, logger, algorithm, req, emit)
	if err != nil {
		logger.Error("compression job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		emit(v1.EventError, err.Error(), nil)
		return v1.CompressionResponse{}, err
	}

	logger.Info("compression job finished", zap.String("output", output), zap.Duration("duration", time.Since(start)))
	emit(v1.EventSuccess, "Compression finished successfully", lo.ToPtr(float32(100)))

	return v1.CompressionResponse{
		JobID:     jobID,
		Algorithm: algorithm,
		Output:    output,
		Status:    v1.StatusSuccess,
	}, nil
}

func (d *Dispatcher) run(ctx context.Context, logger *zap.Logger, algorithm string, req v1.CompressionRequest, emit func(string, string, *float32)) (string, error) {
	if req.InputPath == "" {
		return "", fmt.Errorf("input file does not exist: no input path set")
	}
	if req.OutputPath == "" {
		return "", fmt.Errorf("output folder does not exist or is not a directory: no output path set")
	}

	input, err := d.fs.Stat(req.InputPath)
	if err != nil {
		return "", fmt.Errorf("input file does not exist: %s", req.InputPath)
	}

	remote := isDestinationURL(req.OutputPath)
	if remote {
		if d.sinks == nil {
			return "", fmt.Errorf("output destination %s is not supported", req.OutputPath)
		}
	} else if output, err := d.fs.Stat(req.OutputPath); err != nil || !output.IsDir() {
		return "", fmt.Errorf("output folder does not exist or is not a directory: %s", req.OutputPath)
	}

	runner, err := d.registry.Lookup(algorithm)
	if err != nil {
		return "", err
	}

	emit(v1.EventStatus, fmt.Sprintf("Starting %s compression...", algorithm), lo.ToPtr(float32(0)))

	inputPath := req.InputPath
	if input.IsDir() {
		emit(v1.EventStatus, "Input is a directory. Creating intermediate tar...", nil)
		packed, err := d.packer.Pack(ctx, req.InputPath)
		if err != nil {
			return "", fmt.Errorf("failed to pack directory %s: %w", req.InputPath, err)
		}
		defer func() {
			if err := d.fs.Remove(packed); err != nil {
				logger.Warn("failed to remove intermediate tar", zap.String("path", packed), zap.Error(err))
			}
		}()
		inputPath = packed
	} else {
		emit(v1.EventStatus, "Input is a file. Skipping tar...", nil)
	}

	outputDir := req.OutputPath
	if remote {
		staging, err := afero.TempDir(d.fs, "", "presskit-")
		if err != nil {
			return "", fmt.Errorf("failed to create staging directory: %w", err)
		}
		defer func() {
			if err := d.fs.RemoveAll(staging); err != nil {
				logger.Warn("failed to remove staging directory", zap.String("path", staging), zap.Error(err))
			}
		}()
		outputDir = staging
	}

	name := OutputName(d.now(), inputPath, runner.Extension())
	outputPath := filepath.Join(outputDir, name)

	logger.Debug("running compression",
		zap.String("runner", runner.Name()),
		zap.String("runner_kind", runner.Kind()),
		zap.String("input", inputPath),
		zap.String("output", outputPath),
	)

	err = runner.Run(ctx, RunRequest{
		Flags:      req.Flags,
		InputPath:  inputPath,
		OutputPath: outputPath,
	}, func(message string, percentage *float32) {
		emit(v1.EventProgress, message, percentage)
	})
	if err != nil {
		return "", err
	}

	if !remote {
		return outputPath, nil
	}

	emit(v1.EventStatus, fmt.Sprintf("Uploading %s to %s...", name, req.OutputPath), nil)
	if err := d.upload(ctx, req.OutputPath, name, outputPath); err != nil {
		return "", err
	}
	return strings.TrimSuffix(req.OutputPath, "/") + "/" + name, nil
}

func (d *Dispatcher) upload(ctx context.Context, destination, name, localPath string) (err error) {
	sink, err := d.sinks(ctx, destination)
	if err != nil {
		return fmt.Errorf("failed to open destination %s: %w", destination, err)
	}

	f, err := d.fs.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := sink.Write(ctx, name, f); err != nil {
		return fmt.Errorf("failed to write to %s: %w", sink.Name(), err)
	}
	if err := sink.Close(ctx); err != nil {
		return fmt.Errorf("failed to close %s: %w", sink.Name(), err)
	}
	return nil
}

// isDestinationURL reports whether output names a sink rather than a local directory.
func isDestinationURL(output string) bool {
	scheme, _, ok := strings.Cut(output, "://")
	return ok && scheme != "" && !strings.ContainsAny(scheme, string(os.PathSeparator)+"/")
}
