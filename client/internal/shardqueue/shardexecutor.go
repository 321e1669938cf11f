// Package shardqueue provides a sharded work queue that guarantees FIFO order
// per key while allowing parallelism across keys. The SDK uses it to run
// story generation requests in the background, one queue position per kid.
//
// Callers must not invoke Submit concurrently for the same key; FIFO order
// relies on that external serialisation.
package shardqueue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	apierrors "github.com/storynest/storynest/client/internal/errors"
)

type queuedJob struct {
	ctx context.Context
	key string
	job Job
}

// ShardExecutor executes Jobs on worker goroutines partitioned by a stable
// hash of the key. Recoverable failures are retried with exponential backoff;
// irrecoverable ones are reported once and dropped.
type ShardExecutor struct {
	cfg    Config
	queues []chan queuedJob

	// mu orders Submit against Stop so nothing is enqueued after the
	// workers have drained.
	mu      sync.RWMutex
	stopCtx context.Context
	stop    context.CancelFunc
	closed  atomic.Bool

	wg sync.WaitGroup
}

// NewShardExecutor constructs the executor and starts its shard workers.
func NewShardExecutor(cfg Config) *ShardExecutor {
	cfg = cfg.withDefaults()
	stopCtx, stop := context.WithCancel(context.Background())
	p := &ShardExecutor{
		cfg:     cfg,
		queues:  make([]chan queuedJob, cfg.Shards),
		stopCtx: stopCtx,
		stop:    stop,
	}
	for i := range p.queues {
		ch := make(chan queuedJob, cfg.QueueSize)
		p.queues[i] = ch
		p.wg.Add(1)
		go p.runWorker(i, ch)
	}
	return p
}

// Submit enqueues job on the shard derived from key.
//
//   - Returns ErrExecutorClosed if the executor is stopped.
//   - Returns a *QueueFullError (errors.Is ErrQueueFull) if the shard stays
//     full for EnqueueTimeout.
//   - Returns ctx.Err() if ctx is done first.
func (p *ShardExecutor) Submit(ctx context.Context, key string, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed.Load() {
		return ErrExecutorClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	shard := p.shardFor(key)
	ch := p.queues[shard]

	timer := time.NewTimer(p.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- queuedJob{ctx: ctx, key: key, job: job}:
		submissionsTotal.WithLabelValues(labelFor(shard)).Inc()
		return nil
	case <-p.stopCtx.Done():
		return ErrExecutorClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		queueFullTotal.WithLabelValues(labelFor(shard)).Inc()
		return &QueueFullError{Shard: shard, Length: len(ch), Capacity: cap(ch)}
	}
}

// Barrier waits until every job submitted for key before the call has run.
func (p *ShardExecutor) Barrier(ctx context.Context, key string) error {
	done := make(chan struct{})
	if err := p.Submit(ctx, key, JobFunc(func(context.Context) error {
		close(done)
		return nil
	})); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Stop rejects new work, interrupts pending retry waits, runs what is still
// queued once, and waits for the workers to exit. It is idempotent.
func (p *ShardExecutor) Stop() {
	p.mu.Lock()
	first := p.closed.CompareAndSwap(false, true)
	p.mu.Unlock()
	if !first {
		return
	}
	p.cfg.Logger.Info().Int("shards", p.cfg.Shards).Msg("shardqueue: stopping executor")
	p.stop()
	p.wg.Wait()
	p.cfg.Logger.Info().Msg("shardqueue: executor stopped, all queues drained")
}

// Close lets ShardExecutor satisfy io.Closer.
func (p *ShardExecutor) Close() error {
	p.Stop()
	return nil
}

// ------------------------- internals -------------------------

func (p *ShardExecutor) runWorker(idx int, ch <-chan queuedJob) {
	defer p.wg.Done()
	label := labelFor(idx)

	for {
		select {
		case qj := <-ch:
			p.execute(label, qj)
			queueDepth.WithLabelValues(label).Set(float64(len(ch)))

		case <-p.stopCtx.Done():
			drained := 0
			for {
				select {
				case qj := <-ch:
					if qj.job == nil {
						continue
					}
					if err := qj.ctx.Err(); err != nil {
						p.report(qj.key, err)
						continue
					}
					if err := p.runOnce(qj); err != nil {
						p.report(qj.key, err)
					}
					drained++
				default:
					if drained > 0 {
						p.cfg.Logger.Info().Int("worker", idx).Int("drained", drained).Msg("shardqueue: drained jobs on stop")
					}
					queueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

// execute runs a job with retries. A job whose context is already done is
// reported and skipped so it cannot stall the shard; the drain in runWorker
// does the same.
func (p *ShardExecutor) execute(label string, qj queuedJob) {
	if qj.job == nil {
		return
	}
	if err := qj.ctx.Err(); err != nil {
		p.report(qj.key, err)
		return
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = p.cfg.MaxInterval
	exp.MaxElapsedTime = 0

	waitCtx, cancel := context.WithCancel(qj.ctx)
	defer cancel()
	unlink := context.AfterFunc(p.stopCtx, cancel)
	defer unlink()

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.cfg.MaxAttempts-1)), waitCtx)

	start := time.Now()
	err := backoff.RetryNotify(func() error {
		err := p.runOnce(qj)
		if err != nil && apierrors.IsIrrecoverable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		retriesTotal.WithLabelValues(label).Inc()
		p.cfg.Logger.Debug().Err(err).Str("key", qj.key).Dur("wait", wait).Msg("shardqueue: retrying job")
	})
	runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if err != nil {
		p.report(qj.key, err)
	}
}

// runOnce runs the job a single time, converting a panic into an error.
func (p *ShardExecutor) runOnce(qj queuedJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = backoff.Permanent(&PanicError{Value: r})
		}
	}()
	return qj.job.Run(qj.ctx)
}

func (p *ShardExecutor) report(key string, err error) {
	var pe *backoff.PermanentError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	p.cfg.Logger.Warn().Err(err).Str("key", key).Msg("shardqueue: job failed")
	if p.cfg.ErrorHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.Error().Interface("panic", r).Msg("shardqueue: error handler panic")
		}
	}()
	p.cfg.ErrorHandler(key, err)
}

func (p *ShardExecutor) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.cfg.Shards))
}
