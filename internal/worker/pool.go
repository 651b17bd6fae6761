package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

var ErrNoErrorHandler = errors.New("worker: task submitted without an error handler")

// ErrPoolFull is returned by Submit on a non-blocking pool whose workers
// are all busy.
var ErrPoolFull = ants.ErrPoolOverload

// Option configures a Pool.
type Option func(*options)

type options struct {
	nonblocking bool
}

// WithNonblocking makes Submit fail with ErrPoolFull instead of waiting
// for a free worker.
func WithNonblocking() Option {
	return func(o *options) { o.nonblocking = true }
}

// Task is a unit of background work. ctx is cancelled when the pool closes.
type Task func(ctx context.Context) error

// Handle tracks a submitted task.
type Handle struct {
	name string
	done chan struct{}
	err  error
}

// Name returns the task name given at submission.
func (h *Handle) Name() string { return h.name }

// Done is closed once the task and its continuation have returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err is the task's result, valid after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pool runs fire-and-forget tasks on a bounded set of goroutines.
type Pool struct {
	pool   *ants.Pool
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

// NewPool creates a pool of size workers. Unless WithNonblocking is given,
// submissions block while every worker is busy.
func NewPool(size int, log zerolog.Logger, opts ...Option) (*Pool, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log = log.With().Str("component", "worker").Logger()
	p, err := ants.NewPool(size,
		ants.WithNonblocking(o.nonblocking),
		ants.WithPanicHandler(func(v interface{}) {
			log.Error().Interface("panic", v).Msg("[worker] panic escaped task wrapper")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{pool: p, ctx: ctx, cancel: cancel, log: log}, nil
}

// Submit schedules task. onSuccess may be nil; onError is required and
// receives both returned errors and recovered panics.
func (p *Pool) Submit(name string, task Task, onSuccess func(), onError func(error)) (*Handle, error) {
	if onError == nil {
		return nil, ErrNoErrorHandler
	}
	h := &Handle{name: name, done: make(chan struct{})}
	err := p.pool.Submit(func() {
		defer close(h.done)
		start := time.Now()

		h.err = run(p.ctx, task)
		log := p.log.With().Str("task", name).Dur("took", time.Since(start)).Logger()
		if h.err != nil {
			log.Debug().Err(h.err).Msg("[worker] task failed")
			onError(h.err)
			return
		}
		log.Debug().Msg("[worker] task done")
		if onSuccess != nil {
			onSuccess()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", name, err)
	}
	return h, nil
}

func run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return task(ctx)
}

// Running is the number of busy workers.
func (p *Pool) Running() int { return p.pool.Running() }

// Close cancels running tasks and waits up to timeout for them to return.
func (p *Pool) Close(timeout time.Duration) error {
	p.cancel()
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("release worker pool: %w", err)
	}
	return nil
}
