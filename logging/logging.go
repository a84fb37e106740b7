// Package logging provides loggers for streamvault packages.
package logging

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Logger is used by streamvault to emit various logs.
type Logger = *zap.SugaredLogger

// LoggerFactory retrieves a named logger for a given module.
type LoggerFactory func(module string) Logger

type contextKey string

const loggerCacheKey contextKey = "logger"

// NullLogger represents a singleton logger that discards all output.
var NullLogger = zap.NewNop().Sugar() //nolint:gochecknoglobals

type loggerCache struct {
	createLoggerForModule LoggerFactory
	mu                    sync.Mutex
	loggers               map[string]Logger
}

func (c *loggerCache) getLogger(module string) Logger {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.loggers[module]; ok {
		return l
	}

	l := c.createLoggerForModule(module)
	c.loggers[module] = l

	return l
}

// WithLogger returns a derived context with associated logger.
func WithLogger(ctx context.Context, l LoggerFactory) context.Context {
	if l == nil {
		l = func(string) Logger { return NullLogger }
	}

	return context.WithValue(ctx, loggerCacheKey, &loggerCache{
		createLoggerForModule: l,
		loggers:               map[string]Logger{},
	})
}

// Module returns an function that returns a logger for a given module when provided with a context.
func Module(module string) func(ctx context.Context) Logger {
	return func(ctx context.Context) Logger {
		if c, ok := ctx.Value(loggerCacheKey).(*loggerCache); ok {
			return c.getLogger(module)
		}

		return NullLogger
	}
}

// ToWriter returns a LoggerFactory that writes console-formatted output of all modules to the provided zap logger.
func ToWriter(root *zap.Logger) LoggerFactory {
	return func(module string) Logger {
		return root.Named(module).Sugar()
	}
}
