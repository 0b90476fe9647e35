// Package worker runs a bounded pool of goroutines that execute the
// orchestrator pipeline for queued jobs, grounded on
// original_source/src/api/workers.rs's start_workers/worker_task, adapted to
// a single shared intake channel instead of per-worker channels: Go's
// multiple receivers on one channel already give the same effective load
// distribution as a round-robin send loop, without the extra indirection.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/apierr"
	"github.com/BetterCallFirewall/urlscreen/internal/model"
)

// Processor runs the full per-URL pipeline. Implemented by
// *orchestrator.Processor; declared here so this package doesn't import
// orchestrator and so tests can supply a fake.
type Processor interface {
	Process(ctx context.Context, url string) (*model.ScreenshotResponse, error)
}

// Job is one unit of intake work: a URL to process and the sink its
// outcome must be delivered to exactly once. JobID is an opaque
// caller-assigned identifier used only for logging and event correlation.
type Job struct {
	JobID    string
	URL      string
	Response chan<- Outcome
}

// Outcome is a job's result: exactly one of Response or Err is set.
type Outcome struct {
	Response *model.ScreenshotResponse
	Err      error
}

const (
	enqueueRetries    = 3
	enqueueRetryDelay = 100 * time.Millisecond
)

// metrics tracks per-pool processed/failed counts and total processing
// time, mirroring WorkerMetrics.
type metrics struct {
	processed         atomic.Int64
	failed            atomic.Int64
	totalProcessingMs atomic.Int64
}

func (m *metrics) record(success bool, elapsed time.Duration) {
	if success {
		m.processed.Add(1)
	} else {
		m.failed.Add(1)
	}
	m.totalProcessingMs.Add(elapsed.Milliseconds())
}

// Stats is a point-in-time snapshot of worker-pool metrics, surfaced on
// /health.
type Stats struct {
	JobsProcessed       int64
	JobsFailed          int64
	AvgProcessingTimeMs int64
}

// Pool distributes jobs from a single bounded intake channel across a
// fixed number of worker goroutines, each bounding its job with a
// per-job deadline.
type Pool struct {
	log        *zap.Logger
	processor  Processor
	jobTimeout time.Duration

	intake chan Job
	wg     sync.WaitGroup

	metrics metrics

	closeOnce sync.Once
	closed    atomic.Bool
	stopped   chan struct{}
}

// New builds and starts a Pool with workerCount worker goroutines reading
// from a queueSize-capacity intake channel. Each job is bounded by
// jobTimeout, the Go equivalent of workers.rs's DEFAULT_JOB_TIMEOUT.
func New(log *zap.Logger, processor Processor, workerCount, queueSize int, jobTimeout time.Duration) *Pool {
	p := &Pool{
		log:        log,
		processor:  processor,
		jobTimeout: jobTimeout,
		intake:     make(chan Job, queueSize),
		stopped:    make(chan struct{}),
	}

	p.wg.Add(workerCount)
	for id := 0; id < workerCount; id++ {
		go p.runWorker(id)
	}

	log.Info("worker pool started", zap.Int("worker_count", workerCount), zap.Int("queue_size", queueSize))
	return p
}

func (p *Pool) runWorker(id int) {
	defer p.wg.Done()
	log := p.log.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for job := range p.intake {
		p.process(log, job)
	}

	log.Info("worker shutting down, intake channel closed")
}

func (p *Pool) process(log *zap.Logger, job Job) {
	log = log.With(zap.String("job_id", job.JobID))
	log.Debug("processing job", zap.String("url", job.URL))
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
	defer cancel()

	resp, err := p.processor.Process(ctx, job.URL)
	if ctx.Err() != nil && (err == nil || errors.Is(err, ctx.Err())) {
		resp = nil
		err = apierr.Wrap(apierr.KindWorkerCancelled, "job processing timed out", ctx.Err())
	}

	p.metrics.record(err == nil, time.Since(start))

	select {
	case job.Response <- Outcome{Response: resp, Err: err}:
	default:
		log.Warn("job response sink was not ready to receive, dropping outcome", zap.String("url", job.URL))
	}
}

// Enqueue offers job to the intake channel, retrying a non-blocking send
// up to enqueueRetries times with enqueueRetryDelay between attempts, the
// Go analog of try_send backing off before giving up with QueueFull.
func (p *Pool) Enqueue(ctx context.Context, job Job) error {
	if p.closed.Load() {
		return apierr.New(apierr.KindServiceUnavailable, "worker pool is shutting down")
	}

	for attempt := 0; attempt < enqueueRetries; attempt++ {
		select {
		case p.intake <- job:
			return nil
		default:
		}

		if attempt+1 < enqueueRetries {
			select {
			case <-time.After(enqueueRetryDelay):
			case <-ctx.Done():
				return apierr.Wrap(apierr.KindRequestTimeout, "enqueue cancelled while waiting for queue capacity", ctx.Err())
			case <-p.stopped:
				return apierr.New(apierr.KindServiceUnavailable, "worker pool is shutting down")
			}
		}
	}

	return apierr.New(apierr.KindQueueFull, "job queue is full")
}

// Stats returns the current processed/failed/average-processing-time
// metrics.
func (p *Pool) Stats() Stats {
	processed := p.metrics.processed.Load()
	failed := p.metrics.failed.Load()
	total := p.metrics.totalProcessingMs.Load()

	var avg int64
	if completed := processed + failed; completed > 0 {
		avg = total / completed
	}

	return Stats{JobsProcessed: processed, JobsFailed: failed, AvgProcessingTimeMs: avg}
}

// Shutdown stops accepting new work, closes the intake channel so every
// worker drains its in-flight job and exits, and waits for all workers to
// finish or ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.stopped)
		close(p.intake)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("worker pool shutdown complete")
		return nil
	case <-ctx.Done():
		p.log.Warn("worker pool shutdown deadline exceeded, workers abandoned in flight")
		return ctx.Err()
	}
}
