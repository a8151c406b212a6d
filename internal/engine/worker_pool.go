package engine

import (
	"context"
	"log"
	"sync"
	"time"
)

// EnrichmentJob is queued after a memory is captured so that auto-relate
// (which needs the memory's embedding already persisted) and any other
// post-capture enrichment run off the request path.
type EnrichmentJob struct {
	MemoryID string
	Attempt  int
}

// workerPool runs a fixed number of goroutines draining a bounded job
// channel, the same shape as the capture pipeline's enrichment queue.
type workerPool struct {
	jobs chan EnrichmentJob
	wg   sync.WaitGroup
}

func newWorkerPool(numWorkers, queueSize int, handle func(context.Context, EnrichmentJob)) *workerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	p := &workerPool{jobs: make(chan EnrichmentJob, queueSize)}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i, handle)
	}
	return p
}

func (p *workerPool) worker(id int, handle func(context.Context, EnrichmentJob)) {
	defer p.wg.Done()
	for job := range p.jobs {
		handle(context.Background(), job)
	}
	log.Printf("enrichment worker %d stopped", id)
}

// enqueue submits a job, dropping it if the queue is full rather than
// blocking the caller's request path.
func (p *workerPool) enqueue(job EnrichmentJob) bool {
	select {
	case p.jobs <- job:
		return true
	default:
		log.Printf("enrichment queue full, dropping job for memory %s", job.MemoryID)
		return false
	}
}

// shutdown closes the job channel and waits up to timeout for every worker
// to drain, logging (not erroring) if the deadline passes first.
func (p *workerPool) shutdown(timeout time.Duration) {
	close(p.jobs)
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("enrichment shutdown timed out after %s, workers may still be draining", timeout)
	}
}

// EnqueueEnrichment submits a post-capture enrichment job.
func (e *Engine) EnqueueEnrichment(job EnrichmentJob) {
	e.pool.enqueue(job)
}

// runEnrichment auto-relates a freshly captured memory to its nearest
// neighbors. It runs off the request path because it needs the embedding
// Capture just persisted to already be durable before searching against it.
func (e *Engine) runEnrichment(ctx context.Context, job EnrichmentJob) {
	if err := e.autoRelate(ctx, job.MemoryID); err != nil {
		log.Printf("enrichment: auto-relate failed for %s: %v", job.MemoryID, err)
	}
}
