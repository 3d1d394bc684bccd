package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"movment/metrics"

	"go.uber.org/zap"
)

// Locker is a cross-instance mutex. TryLock returns a nil release func when
// the lock is held elsewhere.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (func(), error)
}

type Option func(*loop)

func WithInterval(d time.Duration) Option {
	return func(l *loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *loop) { l.now = now }
}

func WithLocker(locker Locker) Option {
	return func(l *loop) { l.locker = locker }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *loop) { l.logger = logger }
}

// loop runs tick on a fixed interval until stopped. Ticks never overlap
// within a process, and with a Locker they never overlap across processes.
type loop struct {
	name     string
	interval time.Duration
	now      func() time.Time
	locker   Locker
	logger   *zap.Logger
	fn       func(ctx context.Context, now time.Time) (int, error)

	busy   atomic.Bool
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (l *loop) init(name string, interval time.Duration, fn func(context.Context, time.Time) (int, error), opts []Option) {
	l.name = name
	l.interval = interval
	l.fn = fn
	l.now = time.Now
	l.logger = zap.NewNop()
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(zap.String("job", name))
}

// Start launches the background goroutine. Calling Start twice is a no-op.
func (l *loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
	l.logger.Info("scheduler started", zap.Duration("interval", l.interval))
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (l *loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	l.logger.Info("scheduler stopped")
}

func (l *loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := l.RunOnce(ctx); err != nil {
				l.logger.Error("tick failed", zap.Error(err))
			}
		}
	}
}

// RunOnce executes a single tick and returns how many events it changed.
// It returns (0, nil) when another tick still holds the guard.
func (l *loop) RunOnce(ctx context.Context) (n int, err error) {
	if !l.busy.CompareAndSwap(false, true) {
		l.logger.Debug("previous tick still running, skipping")
		return 0, nil
	}
	defer l.busy.Store(false)

	if l.locker != nil {
		release, lerr := l.locker.TryLock(ctx, l.name, l.interval)
		if lerr != nil {
			return 0, lerr
		}
		if release == nil {
			l.logger.Debug("tick held by another instance")
			return 0, nil
		}
		defer release()
	}

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
		metrics.ObserveTick(l.name, started, err)
	}()
	return l.fn(ctx, l.now().UTC())
}
