// Package run drives a service process: signal handling, ordered shutdown
// hooks and the exit code.
package run

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const DefaultShutdownTimeout = 10 * time.Second

type hook struct {
	name string
	fn   func(context.Context) error
}

type Runner struct {
	Logger *zap.Logger
	// ShutdownTimeout bounds all hooks together.
	ShutdownTimeout time.Duration

	hooks []hook
}

func New(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Logger: log, ShutdownTimeout: DefaultShutdownTimeout}
}

// OnShutdown registers fn to run after the service stops. Hooks run in
// reverse registration order, like defers.
func (r *Runner) OnShutdown(name string, fn func(context.Context) error) {
	r.hooks = append(r.hooks, hook{name: name, fn: fn})
}

// WithSignals runs start until it returns or SIGINT/SIGTERM arrives, then
// runs the shutdown hooks and reports a process exit code.
func (r *Runner) WithSignals(start func(ctx context.Context) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return r.Until(ctx, start)
}

// Until is WithSignals with the stop condition supplied by ctx.
func (r *Runner) Until(ctx context.Context, start func(ctx context.Context) error) int {
	ctx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- start(ctx)
	}()

	code := 0
	select {
	case <-ctx.Done():
		r.Logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Logger.Error("service exited with error", zap.Error(err))
			code = 1
		}
	}
	cancel()
	r.shutdown()
	return code
}

func (r *Runner) shutdown() {
	timeout := r.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for i := len(r.hooks) - 1; i >= 0; i-- {
		h := r.hooks[i]
		if err := h.fn(ctx); err != nil {
			r.Logger.Warn("shutdown hook failed", zap.String("hook", h.name), zap.Error(err))
		}
	}
	r.hooks = nil
}

func Exit(code int) {
	os.Exit(code)
}
