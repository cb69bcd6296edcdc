// Package app manages the lifecycle of the wiring server process. It
// handles OS interrupt signals (SIGINT, SIGTERM) and propagates a
// cancellation signal through a context, so that every component can shut
// down gracefully.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout is the default duration to wait for the application to
// gracefully shut down after receiving a termination signal.
const DefaultTimeout = 10 * time.Second

// Runnable is a unit of work executed by the runner. It receives a context
// that is canceled when a shutdown signal is received, and should clean up
// and return once that happens.
type Runnable func(ctx context.Context) error

type config struct {
	logger  *slog.Logger
	timeout time.Duration
	signals []os.Signal
	ctx     context.Context
}

// Option configures the application runner.
type Option func(*config)

// WithLogger provides a custom logger for the application runner. If not set,
// the runner defaults to slog.Default(). A nil value will be ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout sets the timeout of the graceful shutdown. Non-positive values
// are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSignals overrides the OS signals that trigger a shutdown. If not used,
// it defaults to SIGTERM and SIGINT.
func WithSignals(signals ...os.Signal) Option {
	return func(c *config) {
		if len(signals) > 0 {
			c.signals = signals
		}
	}
}

// WithContext sets a parent context for the runner. Cancelling it triggers a
// graceful shutdown. A nil value will be ignored.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// Run executes fn until it returns on its own, a signal is caught, or the
// parent context is canceled. See RunAll for details.
func Run(fn Runnable, opts ...Option) error {
	return RunAll([]Runnable{fn}, opts...)
}

// RunAll executes all runnables concurrently. If one of them fails or
// panics, the others are canceled. Upon receiving a signal, the shared
// context is canceled and RunAll waits up to the shutdown timeout for all
// runnables to return. Returning context.Canceled counts as a clean exit.
func RunAll(fns []Runnable, opts ...Option) error {
	cfg := config{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
		signals: []os.Signal{syscall.SIGTERM, syscall.SIGINT},
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx, stop := signal.NotifyContext(cfg.ctx, cfg.signals...)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		g.Go(func() error { return protect(gctx, fn) })
	}
	errCh := make(chan error, 1)
	go func() { errCh <- g.Wait() }()

	cfg.logger.Info("Application started", "workers", len(fns))

	select {
	case err := <-errCh:
		if err = filter(err); err != nil {
			return fmt.Errorf("encountered an application error: %w", err)
		}
		cfg.logger.Info("Application stopped")
		return nil

	case <-ctx.Done():
		cfg.logger.Info("Shutdown signal received, initiating graceful shutdown")

		timer := time.NewTimer(cfg.timeout)
		defer timer.Stop()

		select {
		case err := <-errCh:
			if err = filter(err); err != nil {
				return fmt.Errorf("error occurred during shutdown: %w", err)
			}
			cfg.logger.Info("Shutdown completed successfully")
			return nil
		case <-timer.C:
			return fmt.Errorf("shutdown timed out after %v", cfg.timeout)
		}
	}
}

// protect runs fn, converting a panic into an error carrying the stack.
func protect(ctx context.Context, fn Runnable) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("application panic: %v\n%s", rec, debug.Stack())
		}
	}()
	return fn(ctx)
}

func filter(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Serve returns a Runnable that serves HTTP requests with srv on ln, or on
// srv.Addr if ln is nil. Once the context is canceled, the server stops
// accepting connections and waits for active requests to complete.
func Serve(srv *http.Server, ln net.Listener) Runnable {
	return func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			if ln != nil {
				errCh <- srv.Serve(ln)
			} else {
				errCh <- srv.ListenAndServe()
			}
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			if err := srv.Shutdown(context.WithoutCancel(ctx)); err != nil {
				return fmt.Errorf("failed to shut down server: %w", err)
			}
			return nil
		}
	}
}
