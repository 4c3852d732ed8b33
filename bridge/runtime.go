package bridge

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/wippyai/glide-ffi/errors"
)

type runtimeKey struct{}

// Runtime runs the work of one client handle. At most workers tasks run at
// once; further tasks wait for a slot without blocking the submitter.
type Runtime struct {
	base   context.Context
	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewRuntime creates a runtime bound to parent.
func NewRuntime(parent context.Context, workers int) (*Runtime, error) {
	if workers <= 0 {
		return nil, errors.New(errors.PhaseConnect, errors.KindThreadCreation).
			Value(workers).
			Detail("worker count must be positive, got %d", workers).
			Build()
	}
	r := &Runtime{sem: semaphore.NewWeighted(int64(workers))}
	r.base = context.WithValue(parent, runtimeKey{}, r)
	r.ctx, r.cancel = context.WithCancel(r.base)
	return r, nil
}

// FromContext returns the runtime ctx was entered from, or nil.
func FromContext(ctx context.Context) *Runtime {
	r, _ := ctx.Value(runtimeKey{}).(*Runtime)
	return r
}

// Context returns the runtime's work context. It is cancelled by Close.
func (r *Runtime) Context() context.Context {
	return r.ctx
}

func (r *Runtime) enter() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return errors.New(errors.PhaseCommand, errors.KindClosed).Detail("client is closing").Build()
	}
	r.wg.Add(1)
	return nil
}

// Spawn submits task and returns immediately. The task always runs once,
// with a cancelled context if the runtime closes before a slot frees up.
func (r *Runtime) Spawn(task func(ctx context.Context)) error {
	if err := r.enter(); err != nil {
		return err
	}
	go func() {
		defer r.wg.Done()
		if err := r.sem.Acquire(r.ctx, 1); err == nil {
			defer r.sem.Release(1)
		}
		task(r.ctx)
	}()
	return nil
}

// BlockOn runs fn on the calling goroutine inside the runtime.
func (r *Runtime) BlockOn(fn func(ctx context.Context) error) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.wg.Done()
	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		return errors.Wrap(errors.PhaseCommand, errors.KindClosed, err, "client is closing")
	}
	defer r.sem.Release(1)
	return fn(r.ctx)
}

// Close stops accepting work, cancels what is running, runs teardown
// inside the runtime and waits for every task to finish. Teardown runs
// before the wait so it can release I/O that blocked tasks are parked on.
func (r *Runtime) Close(teardown func(ctx context.Context)) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	if teardown != nil {
		teardown(r.base)
	}
	r.wg.Wait()
}
