package adapter

import (
	"context"
	"sync"

	"go-chatty-client/internal/infrastructure/queue/port"
)

type serialTask struct {
	ctx  context.Context
	job  port.Job
	done chan error
}

// SerialRunner executes jobs one at a time in submission order. Submissions
// are appended to a FIFO under a lock, so the order is the order in which Run
// was entered, and a single worker goroutine drains it.
type SerialRunner struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []serialTask
	closed  bool
	wg      sync.WaitGroup
}

var _ port.Runner = (*SerialRunner)(nil)

func NewSerialRunner() *SerialRunner {
	r := &SerialRunner{}
	r.cond = sync.NewCond(&r.mu)
	r.wg.Add(1)
	go r.loop()
	return r
}

// Run enqueues job and waits for its result. If ctx ends while the job is
// still queued, Run returns ctx.Err() and the job is skipped when reached.
func (r *SerialRunner) Run(ctx context.Context, job port.Job) error {
	t := serialTask{ctx: ctx, job: job, done: make(chan error, 1)}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return port.ErrClosed
	}
	r.pending = append(r.pending, t)
	r.cond.Signal()
	r.mu.Unlock()

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, fails the queued ones with port.ErrClosed and
// waits for the running one to finish.
func (r *SerialRunner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	for _, t := range r.pending {
		t.done <- port.ErrClosed
	}
	r.pending = nil
	r.cond.Broadcast()
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

func (r *SerialRunner) loop() {
	defer r.wg.Done()
	for {
		r.mu.Lock()
		for len(r.pending) == 0 && !r.closed {
			r.cond.Wait()
		}
		if r.closed {
			r.mu.Unlock()
			return
		}
		t := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()

		if err := t.ctx.Err(); err != nil {
			t.done <- err
			continue
		}
		t.done <- t.job(t.ctx)
	}
}
