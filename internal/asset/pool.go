package asset

import (
	"context"
	"sync/atomic"

	"mirage/internal/gpu"
	"mirage/internal/resource"

	"golang.org/x/sync/errgroup"
)

// job is one decode request.
type job struct {
	key       string
	path      string
	kind      resource.Kind
	handle    resource.Handle
	cancelled *atomic.Bool
}

// result carries decoded CPU data, or the decode error, back to the render thread.
type result struct {
	job  job
	data resource.Data
	// texture is the texture path named by a decoded material, sampled with filter.
	texture string
	filter  gpu.Filter
	err     error
}

// workerPool runs decode jobs on background goroutines and sends each result to a bounded
// completion channel with a single consumer.
type workerPool struct {
	jobs    chan job
	results chan result
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	decode  func(context.Context, job) result
	busy    atomic.Int32
}

func newWorkerPool(workers, queueSize int, decode func(context.Context, job) result) *workerPool {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	p := &workerPool{
		jobs:    make(chan job, queueSize),
		results: make(chan result, queueSize),
		ctx:     ctx,
		cancel:  cancel,
		group:   group,
		decode:  decode,
	}
	for range max(workers, 1) {
		group.Go(p.worker)
	}
	return p
}

// submit queues j. It returns false if the queue is full or the pool is shut down.
func (p *workerPool) submit(j job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.jobs <- j:
		return true
	default:
		return false
	}
}

func (p *workerPool) worker() error {
	for {
		select {
		case j := <-p.jobs:
			// Jobs cancelled before they started are skipped without decoding.
			if j.cancelled.Load() {
				continue
			}
			p.busy.Add(1)
			res := p.decode(p.ctx, j)
			p.busy.Add(-1)

			select {
			case p.results <- res:
			case <-p.ctx.Done():
				return nil
			}

		case <-p.ctx.Done():
			return nil
		}
	}
}

// shutdown stops the workers without waiting for in-flight decodes.
func (p *workerPool) shutdown() {
	p.cancel()
}

// wait blocks until every worker has returned.
func (p *workerPool) wait() error {
	return p.group.Wait()
}

func (p *workerPool) queued() int {
	return len(p.jobs)
}
