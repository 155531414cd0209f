// Package invoke forwards the front-end's compression request across the
// backend boundary.
package invoke

import (
	"context"
	"encoding/json"
	"fmt"

	v1 "github.com/presskit/presskit/apis/v1"
	"go.uber.org/zap"
)

// Boundary performs one named call against the backend and returns its raw
// JSON result. Errors are returned exactly as the backend reported them.
type Boundary interface {
	Invoke(ctx context.Context, command string, payload any) (json.RawMessage, error)
}

// ResponseError is returned when the backend answered with something that is
// not a CompressionResponse.
type ResponseError struct {
	Raw json.RawMessage
	Err error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("invalid %s response: %v", v1.StartCompressionCommand, e.Err)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// StartCompression sends the four configuration values to the backend as a
// single start_compression call. Values are forwarded as given. An error from
// the boundary is returned unchanged; only an unparsable answer produces a
// *ResponseError.
func StartCompression(
	ctx context.Context,
	logger *zap.Logger,
	boundary Boundary,
	algorithm *string,
	flags []string,
	inputPath string,
	outputPath string,
) (*v1.CompressionResponse, error) {
	req := v1.CompressionRequest{
		Algorithm:  algorithm,
		Flags:      flags,
		InputPath:  inputPath,
		OutputPath: outputPath,
	}

	logger.Debug("submitting to backend",
		zap.Stringp("algorithm", algorithm),
		zap.Strings("flags", flags),
		zap.String("input_path", inputPath),
		zap.String("output_path", outputPath),
	)

	raw, err := boundary.Invoke(ctx, v1.StartCompressionCommand, req)
	if err != nil {
		return nil, err
	}

	var resp v1.CompressionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ResponseError{Raw: raw, Err: err}
	}
	if resp.Status == "" {
		return nil, &ResponseError{Raw: raw, Err: fmt.Errorf("missing status")}
	}
	return &resp, nil
}
