// Package session connects a configuration store to the backend boundary.
package session

import (
	"context"

	v1 "github.com/presskit/presskit/apis/v1"
	"github.com/presskit/presskit/internal/invoke"
	"github.com/presskit/presskit/internal/state"
	"go.uber.org/zap"
)

type Controller struct {
	logger   *zap.Logger
	store    *state.Store
	boundary invoke.Boundary
}

func NewController(logger *zap.Logger, store *state.Store, boundary invoke.Boundary) *Controller {
	return &Controller{logger: logger, store: store, boundary: boundary}
}

func (c *Controller) Store() *state.Store {
	return c.store
}

// Submit reads the current configuration and starts the backend call without
// waiting for it. Each call is independent: earlier submissions are neither
// cancelled nor queued behind.
func (c *Controller) Submit(ctx context.Context) *Pending {
	cfg := c.store.Snapshot()
	p := &Pending{done: make(chan struct{})}

	go func() {
		defer close(p.done)
		p.resp, p.err = invoke.StartCompression(ctx, c.logger, c.boundary, cfg.Algorithm, cfg.Flags, cfg.InputPath, cfg.OutputPath)
	}()

	return p
}

// Run submits and waits for the outcome.
func (c *Controller) Run(ctx context.Context) (*v1.CompressionResponse, error) {
	return c.Submit(ctx).Wait(ctx)
}

// Pending is the outcome of a submitted call.
type Pending struct {
	done chan struct{}
	resp *v1.CompressionResponse
	err  error
}

// Done is closed when the backend call has returned.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the call returns or ctx is done. The error is the one the
// boundary produced, unchanged.
func (p *Pending) Wait(ctx context.Context) (*v1.CompressionResponse, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
