package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Task is a best-effort side effect such as a reward payment.
type Task func(ctx context.Context) error

// Runner dispatches tasks without blocking the caller. Tasks passed to GoKeyed
// with the same key run one at a time in submission order.
type Runner interface {
	Go(name string, task Task, onError func(error))
	GoKeyed(key, name string, task Task, onError func(error))
}

type job struct {
	name    string
	task    Task
	onError func(error)
}

// Dispatcher runs tasks on their own goroutines, at most Limit at a time.
// Failures are logged and handed to the task's onError callback; they never
// propagate back to the dispatching caller.
type Dispatcher struct {
	ctx     context.Context
	logger  *zap.Logger
	sem     *semaphore.Weighted
	timeout time.Duration

	wg     sync.WaitGroup
	mu     sync.Mutex
	errs   error
	queues map[string][]job
}

type NewDispatcherOptions struct {
	Logger  *zap.Logger
	Limit   int64
	Timeout time.Duration
}

func NewDispatcher(ctx context.Context, opts NewDispatcherOptions) *Dispatcher {
	if opts.Limit <= 0 {
		opts.Limit = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		ctx:     ctx,
		logger:  logger.Named("workers"),
		sem:     semaphore.NewWeighted(opts.Limit),
		timeout: opts.Timeout,
		queues:  make(map[string][]job),
	}
}

func (d *Dispatcher) Go(name string, task Task, onError func(error)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(job{name: name, task: task, onError: onError})
	}()
}

// GoKeyed queues task behind any unfinished task with the same key.
func (d *Dispatcher) GoKeyed(key, name string, task Task, onError func(error)) {
	d.wg.Add(1)
	d.mu.Lock()
	q, draining := d.queues[key]
	d.queues[key] = append(q, job{name: name, task: task, onError: onError})
	d.mu.Unlock()
	if !draining {
		go d.drain(key)
	}
}

func (d *Dispatcher) drain(key string) {
	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		next := q[0]
		d.queues[key] = q[1:]
		d.mu.Unlock()

		d.run(next)
		d.wg.Done()
	}
}

func (d *Dispatcher) run(j job) {
	if err := d.sem.Acquire(d.ctx, 1); err != nil {
		d.fail(j.name, err, j.onError)
		return
	}
	defer d.sem.Release(1)

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()
	if err := j.task(ctx); err != nil {
		d.fail(j.name, err, j.onError)
	}
}

func (d *Dispatcher) fail(name string, err error, onError func(error)) {
	d.logger.Warn("task failed", zap.String("task", name), zap.Error(err))
	d.mu.Lock()
	d.errs = multierr.Append(d.errs, fmt.Errorf("%s: %w", name, err))
	d.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}

// Wait blocks until every dispatched task has finished and returns the
// combined failures seen so far.
func (d *Dispatcher) Wait() error {
	d.wg.Wait()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errs
}

// Inline runs tasks synchronously on the caller's goroutine. Used in tests.
type Inline struct {
	Logger *zap.Logger
	Errs   []error
}

func (r *Inline) Go(name string, task Task, onError func(error)) {
	if err := task(context.Background()); err != nil {
		if r.Logger != nil {
			r.Logger.Warn("task failed", zap.String("task", name), zap.Error(err))
		}
		r.Errs = append(r.Errs, err)
		if onError != nil {
			onError(err)
		}
	}
}

func (r *Inline) GoKeyed(_, name string, task Task, onError func(error)) {
	r.Go(name, task, onError)
}
