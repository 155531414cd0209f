package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/presskit/presskit/internal/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Serve the compression backend over HTTP",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Value: "127.0.0.1:7878",
			Usage: "Address to listen on",
		},
		&cli.DurationFlag{
			Name:  "shutdown-timeout",
			Value: 30 * time.Second,
			Usage: "How long running jobs get to finish on shutdown",
		},
	}, backendFlags...),
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx).Named("server")

		dispatcher, err := resolveDispatcher(ctx, command)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              command.String("listen"),
			Handler:           newServeHandler(logger, dispatcher, getLogLevel(ctx)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", zap.String("addr", srv.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("server stopped: %w", err)
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), command.Duration("shutdown-timeout"))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// LogLevelPath reads (GET) or changes (PUT {"level":"debug"}) the log level of
// a running server.
const LogLevelPath = "/log/level"

func newServeHandler(logger *zap.Logger, dispatcher server.Dispatcher, level zap.AtomicLevel) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", server.NewHTTPHandler(logger, dispatcher))
	mux.Handle(LogLevelPath, level)
	return mux
}
