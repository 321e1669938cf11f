package shardqueue

import "context"

// Job is what the executor runs for a key. A job that returns a recoverable
// error is run again, so Run may be called more than once per submission.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc lets a plain function be submitted.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }
