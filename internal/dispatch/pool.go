package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vdtran/voicebox/internal/observability"
)

var (
	// ErrWaitTimeout reports that a stage await exceeded its budget. The stage's
	// context is cancelled at that point; a stage that honors it frees its worker
	// slot, one that ignores it keeps running with its result dropped.
	ErrWaitTimeout = errors.New("stage wait timed out")

	ErrPoolClosed = errors.New("dispatcher closed")
)

const queueDepth = 128

// StageFunc is one unit of externally-bound work. Implementations should check
// ctx at adapter call boundaries so a timed-out await releases the slot.
type StageFunc func(ctx context.Context) (string, error)

// Handle tracks a submitted stage until its awaiter collects the result.
type Handle struct {
	name   string
	done   chan struct{}
	cancel context.CancelFunc
	text   string
	err    error
}

// Wait blocks up to timeout for the stage result. On timeout it cancels the
// stage's context and returns ErrWaitTimeout; it never returns a partial result.
func (h *Handle) Wait(timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.done:
		return h.text, h.err
	case <-timer.C:
		h.cancel()
		return "", fmt.Errorf("stage %s: %w", h.name, ErrWaitTimeout)
	}
}

// Done exposes completion for callers that want to observe a stage
// independently of a timed await.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

type task struct {
	ctx    context.Context
	fn     StageFunc
	handle *Handle
}

// Pool runs stages on a fixed number of workers. Submissions beyond the worker
// count queue; the queue is the only backpressure mechanism.
type Pool struct {
	queue   chan *task
	metrics *observability.Metrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(size int, metrics *observability.Metrics) *Pool {
	if size <= 0 {
		size = 2
	}
	p := &Pool{
		queue:   make(chan *task, queueDepth),
		metrics: metrics,
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

// Submit enqueues a stage and returns immediately with its handle.
func (p *Pool) Submit(name string, fn StageFunc) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		name:   name,
		done:   make(chan struct{}),
		cancel: cancel,
	}

	// The enqueue happens under the same lock Close takes before closing the
	// queue, so a submission can never hit a closed channel.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		h.err = ErrPoolClosed
		close(h.done)
		cancel()
		return h
	}

	if p.metrics != nil {
		p.metrics.QueuedStages.Inc()
	}
	p.queue <- &task{ctx: ctx, fn: fn, handle: h}
	return h
}

// Close stops accepting work and waits for in-flight stages to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.queue {
		if p.metrics != nil {
			p.metrics.QueuedStages.Dec()
			p.metrics.BusyWorkers.Inc()
		}
		start := time.Now()
		t.handle.text, t.handle.err = t.fn(t.ctx)
		if p.metrics != nil {
			p.metrics.BusyWorkers.Dec()
			p.metrics.ObserveStage(t.handle.name, time.Since(start))
		}
		t.handle.cancel()
		close(t.handle.done)
	}
}
