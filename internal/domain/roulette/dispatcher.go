package roulette

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

type DispatcherConfig struct {
	MaxInflight int64
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxInflight: 8,
		MaxAttempts: 3,
		RetryDelay:  time.Second,
		Timeout:     10 * time.Second,
	}
}

// Dispatcher runs best-effort side effects in the background. Go never
// blocks the caller; failures are logged and dropped.
type Dispatcher struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sem    *semaphore.Weighted
	cfg    DispatcherConfig
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(cfg.MaxInflight),
		cfg:    cfg,
	}
}

// Go schedules fn. It is retried up to MaxAttempts times.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Side effect panic",
					slog.String("type", "error"),
					slog.String("name", name),
					slog.Any("panic", r))
			}
		}()

		if err := d.sem.Acquire(d.ctx, 1); err != nil {
			slog.Warn("Side effect dropped",
				slog.String("name", name),
				slog.Any("error", err))
			return
		}
		defer d.sem.Release(1)

		d.run(name, fn)
	}()
}

func (d *Dispatcher) run(name string, fn func(ctx context.Context) error) {
	start := time.Now()
	var err error
	for attempt := 1; ; attempt++ {
		err = d.attempt(fn)
		if err == nil {
			slog.Info("Side effect delivered",
				slog.String("type", "spin"),
				slog.String("name", name),
				slog.Int("attempt", attempt),
				slog.Duration("took", time.Since(start)))
			return
		}
		if attempt >= d.cfg.MaxAttempts || !d.backoff(attempt) {
			break
		}
	}

	slog.Error("Side effect failed",
		slog.String("type", "error"),
		slog.String("name", name),
		slog.String("status", "failed"),
		slog.Any("error", err),
		slog.Duration("took", time.Since(start)))
}

func (d *Dispatcher) backoff(attempt int) bool {
	select {
	case <-d.ctx.Done():
		return false
	case <-time.After(d.cfg.RetryDelay * time.Duration(attempt)):
		return true
	}
}

func (d *Dispatcher) attempt(fn func(ctx context.Context) error) error {
	ctx := d.ctx
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(d.ctx, d.cfg.Timeout)
		defer cancel()
	}
	return fn(ctx)
}

// Wait blocks until every scheduled side effect finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown cancels pending side effects and waits up to timeout.
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		slog.Warn("Timeout waiting for side effects to stop",
			slog.Duration("timeout", timeout))
		return context.DeadlineExceeded
	}
}
