package queue

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hrdesk/hr-auth/internal/api/metrics"
)

const channelBuffer = 256

// ErrPoolClosed is returned by Do once the pool has been stopped.
var ErrPoolClosed = errors.New("worker pool closed")

type job struct {
	ctx  context.Context
	fn   func()
	done chan struct{}
}

// Pool runs CPU-bound jobs (password hashing) on a fixed set of workers so
// request goroutines never compete for more cores than the pool owns.
type Pool struct {
	jobs    chan job
	workers int
	log     zerolog.Logger

	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
}

// NewPool creates a Pool with numWorkers workers.
// If numWorkers <= 0, one worker per CPU is used.
func NewPool(numWorkers int, log zerolog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{
		jobs:    make(chan job, channelBuffer),
		workers: numWorkers,
		log:     log,
		stopped: make(chan struct{}),
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
	go func() {
		<-ctx.Done()
		p.stop()
	}()
	p.log.Debug().Int("workers", p.workers).Msg("hashing pool started")
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Do runs fn on a worker and waits for it to finish. It returns ctx.Err() if
// ctx ends before fn completes; a job still queued at that point is skipped.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	j := job{ctx: ctx, fn: fn, done: make(chan struct{})}

	select {
	case <-p.stopped:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- j:
		metrics.HashQueueDepth.Set(float64(len(p.jobs)))
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		return ErrPoolClosed
	}
}

func (p *Pool) stop() {
	p.stopOnce.Do(func() { close(p.stopped) })
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			metrics.HashQueueDepth.Set(float64(len(p.jobs)))
			if j.ctx.Err() != nil {
				p.log.Debug().Int("worker_id", id).Msg("skipping cancelled job")
				close(j.done)
				continue
			}
			j.fn()
			close(j.done)
		}
	}
}
