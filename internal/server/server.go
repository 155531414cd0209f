// Package server exposes an engine dispatcher to front-ends running in
// another process.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	v1 "github.com/presskit/presskit/apis/v1"
	"github.com/presskit/presskit/internal/engine"
	"go.uber.org/zap"
)

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// Dispatcher is implemented by *engine.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, req v1.CompressionRequest, events engine.EventSink) (v1.CompressionResponse, error)
	Registry() *engine.Registry
}

func envelopeError(env v1.Envelope, err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Sprintf("invalid envelope: %v", err)
	}
	// The first failing field decides.
	fe := fieldErrs[0]
	switch {
	case fe.Field() == "Command" && fe.Tag() == "oneof":
		return fmt.Sprintf("unknown command %q", env.Command)
	case fe.Field() == "Command":
		return "invalid envelope: missing command"
	case fe.Field() == "Payload":
		return fmt.Sprintf("invalid envelope: command %q has no payload", env.Command)
	default:
		return fmt.Sprintf("invalid envelope: %v", err)
	}
}

// handle runs one envelope and reports every outcome through write, ending
// with exactly one result or error message.
func handle(ctx context.Context, logger *zap.Logger, d Dispatcher, env v1.Envelope, write func(v1.Message) error) error {
	if err := defaultValidator.Struct(env); err != nil {
		logger.Warn("rejected envelope", zap.String("command", env.Command), zap.Error(err))
		return write(v1.Message{Error: &v1.RemoteError{Message: envelopeError(env, err)}})
	}

	var req v1.CompressionRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		return write(v1.Message{Error: &v1.RemoteError{Message: fmt.Sprintf("invalid payload: %v", err)}})
	}

	var writeErr error
	events := engine.EventSinkFunc(func(e v1.CompressionEvent) {
		if writeErr != nil {
			return
		}
		writeErr = write(v1.Message{Event: &e})
	})

	resp, err := d.Dispatch(ctx, req, events)
	if writeErr != nil {
		return fmt.Errorf("failed to write event: %w", writeErr)
	}
	if err != nil {
		return write(v1.Message{Error: &v1.RemoteError{Message: err.Error()}})
	}
	return write(v1.Message{Result: &resp})
}
