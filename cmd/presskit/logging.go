package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type loggerCtxKeyType struct{}
type levelCtxKeyType struct{}

var (
	loggerCtxKey = loggerCtxKeyType{}
	levelCtxKey  = levelCtxKeyType{}
)

// createLogger builds the process logger. Logs always go to stderr: stdout
// carries command output and, for `presskit engine`, the message stream.
// The returned level can be changed while the process runs.
func createLogger(debug bool, logLevel string) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := zap.ParseAtomicLevel(logLevel)
	if err != nil {
		return nil, zap.NewAtomicLevel(), fmt.Errorf("invalid log level %s: %w", logLevel, err)
	}

	var loggerCfg zap.Config
	if debug {
		loggerCfg = zap.NewDevelopmentConfig()
	} else {
		loggerCfg = zap.NewProductionConfig()
		// Progress events arrive in bursts, sampling would drop most of them.
		loggerCfg.Sampling = nil
	}
	loggerCfg.Level = level
	loggerCfg.OutputPaths = []string{"stderr"}
	loggerCfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := loggerCfg.Build()
	if err != nil {
		return nil, zap.NewAtomicLevel(), fmt.Errorf("failed to build logger: %w", err)
	}

	return logger.Named("presskit"), level, nil
}

func withLogger(ctx context.Context, logger *zap.Logger, level zap.AtomicLevel) context.Context {
	ctx = context.WithValue(ctx, loggerCtxKey, logger)
	return context.WithValue(ctx, levelCtxKey, level)
}

func tryLogger(ctx context.Context) *zap.Logger {
	logger, ok := ctx.Value(loggerCtxKey).(*zap.Logger)
	if !ok {
		return nil
	}
	return logger
}

func getLogger(ctx context.Context) *zap.Logger {
	logger := tryLogger(ctx)
	if logger == nil {
		panic("logger not found in context")
	}
	return logger
}

// getLogLevel returns the level of the logger in ctx. Outside a command it
// is a fresh info level.
func getLogLevel(ctx context.Context) zap.AtomicLevel {
	level, ok := ctx.Value(levelCtxKey).(zap.AtomicLevel)
	if !ok {
		return zap.NewAtomicLevel()
	}
	return level
}
