// Package workerpool bounds how many (rule, pair) executions run
// concurrently, sizing its default capacity from the host's available
// CPUs so a rule set with expensive regexes or many send actions
// cannot stall a proxy's main request path.
package workerpool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.uber.org/zap"
)

// Job is one unit of work the pool runs: a closure over a specific
// (rule, pair) pairing, returning the engine.RuleResult (opaque to the
// pool) or an error.
type Job func(ctx context.Context) (any, error)

// Result pairs a Job's outcome with the order it was submitted in, so
// a caller that needs to correlate results back to pairs can do so
// without its own bookkeeping.
type Result struct {
	Index int
	Value any
	Err   error
}

// Pool runs submitted jobs across a fixed number of worker goroutines.
type Pool struct {
	jobs   chan indexedJob
	wg     sync.WaitGroup
	active atomic.Int64
	logger *zap.Logger
	closed atomic.Bool
}

type indexedJob struct {
	ctx   context.Context
	index int
	job   Job
	out   chan<- Result
	done  *sync.WaitGroup
}

// New starts a Pool with size worker goroutines. A size of 0 or less
// resolves to DefaultSize.
func New(size int, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = DefaultSize()
	}

	p := &Pool{
		jobs:   make(chan indexedJob, size),
		logger: logger,
	}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}

	return p
}

// DefaultSize reports the pool size used when the caller does not
// specify one: one worker per logical CPU, with a floor of 2 so a
// single-core environment still gets some concurrency between
// in-flight send actions and new pair intake.
func DefaultSize() int {
	counts, err := cpu.Counts(true)
	if err != nil || counts <= 0 {
		return 2
	}
	if counts < 2 {
		return 2
	}
	return counts
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for ij := range p.jobs {
		p.active.Add(1)
		value, err := ij.job(ij.ctx)
		p.active.Add(-1)
		ij.out <- Result{Index: ij.index, Value: value, Err: err}
		ij.done.Done()
	}
}

// Submit enqueues every job and returns a channel that receives one
// Result per job, in completion order rather than submission order.
// The channel is closed once every job has reported a result. ctx is
// threaded through to every job, so a deadline or cancellation the
// caller set reaches the job the same way it would a direct call.
func (p *Pool) Submit(ctx context.Context, jobs []Job) <-chan Result {
	out := make(chan Result, len(jobs))
	if p.closed.Load() {
		close(out)
		if p.logger != nil {
			p.logger.Warn("submit called on a closed worker pool, dropping jobs", zap.Int("count", len(jobs)))
		}
		return out
	}

	var done sync.WaitGroup
	done.Add(len(jobs))

	go func() {
		for i, job := range jobs {
			p.jobs <- indexedJob{ctx: ctx, index: i, job: job, out: out, done: &done}
		}
	}()

	go func() {
		done.Wait()
		close(out)
	}()

	return out
}

// Active reports how many jobs are currently executing.
func (p *Pool) Active() int64 {
	return p.active.Load()
}

// Close stops accepting new jobs and waits for in-flight jobs to
// finish. It is safe to call once; a second call is a no-op.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.jobs)
	p.wg.Wait()
}
