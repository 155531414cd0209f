package engine

import "context"

// RunRequest is the resolved input of a single runner invocation.
type RunRequest struct {
	Flags []string
	// InputPath is a regular file. Directories are packed before a runner sees them.
	InputPath string
	// OutputPath is the full path of the file to produce.
	OutputPath string
}

// ProgressFunc reports runner output. percentage is nil when the message
// carries no percentage.
type ProgressFunc func(message string, percentage *float32)

// Runner compresses one file with one algorithm.
type Runner interface {
	Named
	// Extension is the file extension of produced files, without the dot.
	Extension() string
	Run(ctx context.Context, req RunRequest, progress ProgressFunc) error
}
