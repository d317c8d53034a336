package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Runtime owns the goroutines that run backend work. It is created once per
// session and shut down explicitly when the session ends.
type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRuntime creates a runtime whose tasks are canceled with parent
func NewRuntime(parent context.Context, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Runtime{ctx: ctx, cancel: cancel, logger: logger}
}

// Context is canceled when the runtime shuts down
func (r *Runtime) Context() context.Context { return r.ctx }

// Spawn runs fn on its own goroutine. It returns false once the runtime
// has been shut down.
func (r *Runtime) Spawn(fn func(ctx context.Context)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn(r.ctx)
	}()
	return true
}

// Shutdown cancels every task and waits up to timeout for them to return.
// A zero timeout waits indefinitely.
func (r *Runtime) Shutdown(timeout time.Duration) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
		return nil
	}
	select {
	case <-done:
		r.logger.Debug("runtime stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("runtime shutdown: tasks still running after %s", timeout)
	}
}
