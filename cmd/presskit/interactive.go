package main

import (
	"context"
	"fmt"
	"io"
	"os"

	v1 "github.com/presskit/presskit/apis/v1"
	"github.com/presskit/presskit/internal/invoke"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type interactiveCtxKeyType struct{}

var interactiveCtxKey = interactiveCtxKeyType{}

func isInteractiveEnvironment() bool {
	if os.Getenv("CI") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func withInteractive(ctx context.Context, interactive bool) context.Context {
	return context.WithValue(ctx, interactiveCtxKey, interactive)
}

func isInteractive(ctx context.Context) bool {
	interactive, ok := ctx.Value(interactiveCtxKey).(bool)
	if !ok {
		return false
	}
	return interactive
}

// newEventPrinter renders backend events. On a terminal progress is redrawn in
// place on w, otherwise every event becomes a log entry.
func newEventPrinter(ctx context.Context, w io.Writer, logger *zap.Logger) invoke.EventHandler {
	if !isInteractive(ctx) {
		return func(e v1.CompressionEvent) {
			fields := []zap.Field{
				zap.String("job_id", e.JobID),
				zap.String("event_type", e.EventType),
				zap.String("message", e.Message),
			}
			if e.Percentage != nil {
				fields = append(fields, zap.Float32("percentage", *e.Percentage))
			}
			switch e.EventType {
			case v1.EventError:
				logger.Warn("backend event", fields...)
			case v1.EventProgress:
				logger.Debug("backend event", fields...)
			default:
				logger.Info("backend event", fields...)
			}
		}
	}

	inProgress := false
	return func(e v1.CompressionEvent) {
		if e.EventType == v1.EventProgress {
			if e.Percentage != nil {
				fmt.Fprintf(w, "\r%s %5.1f%%", e.Algorithm, *e.Percentage)
			} else {
				fmt.Fprintf(w, "\r%s %s", e.Algorithm, e.Message)
			}
			inProgress = true
			return
		}

		if inProgress {
			fmt.Fprintln(w)
			inProgress = false
		}
		switch e.EventType {
		case v1.EventError:
			fmt.Fprintf(w, "✗ %s\n", e.Message)
		case v1.EventSuccess:
			fmt.Fprintf(w, "✓ %s\n", e.Message)
		default:
			fmt.Fprintln(w, e.Message)
		}
	}
}
