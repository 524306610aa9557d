package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"relaygo/pkg/logger"
)

var (
	ErrPoolClosed = errors.New("worker pool closed")
	ErrQueueFull  = errors.New("worker queue full")
)

// Task receives the pool's base context, not the submitter's request context.
type Task func(ctx context.Context)

type job struct {
	name string
	run  Task
}

// Pool runs fire-and-forget tasks on a fixed number of workers. Each worker
// owns a bounded queue and a key always maps to the same worker, so tasks
// sharing a key run one at a time in submission order.
type Pool struct {
	queues         []chan job
	enqueueTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewPool(workers, queueSize int, enqueueTimeout time.Duration) *Pool {
	if workers <= 0 {
		workers = 1
	}
	perWorker := queueSize / workers
	if perWorker <= 0 {
		perWorker = 1
	}
	queues := make([]chan job, workers)
	for i := range queues {
		queues[i] = make(chan job, perWorker)
	}
	return &Pool{
		queues:         queues,
		enqueueTimeout: enqueueTimeout,
		done:           make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	g := new(errgroup.Group)
	for _, queue := range p.queues {
		g.Go(func() error {
			for j := range queue {
				p.run(runCtx, j)
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(p.done)
	}()

	logger.InfoCF("worker", "Worker pool started", map[string]interface{}{
		"workers":    len(p.queues),
		"queue_size": len(p.queues) * cap(p.queues[0]),
	})
}

func (p *Pool) run(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("worker", "Recovered panic in task", map[string]interface{}{
				logger.FieldTask: j.name,
				"panic":          fmt.Sprintf("%v", r),
			})
		}
	}()
	j.run(ctx)
}

// Submit queues t on the worker owning key, waiting at most the enqueue
// timeout for space.
func (p *Pool) Submit(key int64, name string, t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	queue := p.queues[p.owner(key)]
	j := job{name: name, run: t}
	select {
	case queue <- j:
		return nil
	default:
	}
	if p.enqueueTimeout <= 0 {
		return ErrQueueFull
	}

	timer := time.NewTimer(p.enqueueTimeout)
	defer timer.Stop()
	select {
	case queue <- j:
		return nil
	case <-timer.C:
		return ErrQueueFull
	}
}

// Stop refuses new tasks and waits for queued ones to finish. If ctx expires
// first the base context is cancelled so in-flight calls can abort.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, queue := range p.queues {
		close(queue)
	}
	started := p.started
	cancel := p.cancel
	p.mu.Unlock()

	if !started {
		return nil
	}
	defer cancel()

	select {
	case <-p.done:
		logger.InfoC("worker", "Worker pool drained")
		return nil
	case <-ctx.Done():
		logger.WarnC("worker", "Timeout waiting for worker pool to drain")
		return ctx.Err()
	}
}

func (p *Pool) Pending() int {
	pending := 0
	for _, queue := range p.queues {
		pending += len(queue)
	}
	return pending
}

func (p *Pool) owner(key int64) int {
	return int(uint64(key) % uint64(len(p.queues)))
}
