package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/platinummonkey/conceptdoc/pkg/observability"
)

// ErrPoolClosed is returned by Submit after Wait has been called
var ErrPoolClosed = errors.New("worker pool closed")

// Task is a unit of work run by a Pool
type Task func(context.Context) error

// SafeGo runs fn in a goroutine with panic recovery. Errors and panics are
// logged, never propagated. A timeout <= 0 leaves the context unbounded.
//
//	async.SafeGo(ctx, 0, "db stats", logger, func(ctx context.Context) error {
//	    return report(ctx)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn Task) {
	go func() {
		ctx, cancel := withTimeout(parentCtx, timeout)
		defer cancel()
		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).WithField("task", taskName).Error("Background task failed")
		}
	}()
}

// Pool runs submitted tasks on a fixed number of workers and collects
// their errors.
type Pool struct {
	taskName string
	timeout  time.Duration
	logger   *observability.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	work     chan Task
	wg       sync.WaitGroup

	// closeMu guards closed and the close of work
	closeMu sync.RWMutex
	closed  bool

	mu   sync.Mutex
	errs []error
}

// NewPool starts workers goroutines. Each task gets its own timeout when
// timeout > 0.
func NewPool(ctx context.Context, workers int, taskName string, timeout time.Duration, logger *observability.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	ctx, cancel := context.WithCancel(ctx)

	p := &Pool{
		taskName: taskName,
		timeout:  timeout,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		work:     make(chan Task, workers*2),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues fn. It blocks while the queue is full and fails once the
// pool is closed or its context is done.
func (p *Pool) Submit(fn Task) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.work <- fn:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Wait closes the queue, waits for queued tasks to finish and returns
// their errors in completion order.
func (p *Pool) Wait() []error {
	p.closeMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.work)
	}
	p.closeMu.Unlock()

	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errs
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for fn := range p.work {
		if err := p.run(fn); err != nil {
			p.mu.Lock()
			p.errs = append(p.errs, err)
			p.mu.Unlock()
		}
	}
}

func (p *Pool) run(fn Task) (err error) {
	ctx, cancel := withTimeout(p.ctx, p.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = observability.PanicError(p.logger, p.taskName, r)
		}
	}()
	return fn(ctx)
}

// Batch runs fn for every item on a pool of workers and returns all errors.
//
//	errs := async.Batch(ctx, ids, 4, "page export", 10*time.Second, logger, func(ctx context.Context, id int64) error {
//	    return exportPage(ctx, id)
//	})
func Batch[T any](ctx context.Context, items []T, workers int, taskName string, timeout time.Duration,
	logger *observability.Logger, fn func(context.Context, T) error) []error {

	pool := NewPool(ctx, workers, taskName, timeout, logger)
	for _, item := range items {
		item := item
		if err := pool.Submit(func(ctx context.Context) error {
			return fn(ctx, item)
		}); err != nil {
			return append(pool.Wait(), err)
		}
	}
	return pool.Wait()
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
