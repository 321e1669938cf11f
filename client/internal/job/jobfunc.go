package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/storynest/storynest/client/internal/shardqueue"
	"github.com/storynest/storynest/client/internal/types"
)

// ErrNilJobFunc is returned when a job was built without a function.
var ErrNilJobFunc = errors.New("nil job function")

type jobFunc func(context.Context) error

func (f jobFunc) Run(ctx context.Context) error {
	if f == nil {
		return fmt.Errorf("job: %w", ErrNilJobFunc)
	}
	return f(ctx)
}

// New adapts a closure to a queue job.
func New(fn func(context.Context) error) shardqueue.Job {
	return jobFunc(fn)
}

// GenerateFunc performs one story generation attempt.
type GenerateFunc func(context.Context, types.GenerateStoryRequest) (types.Story, error)

// Generation builds the job that runs a queued story generation. The job may
// be retried by the executor, so gen is called once per attempt; onDone runs
// after the first successful attempt only.
func Generation(req types.GenerateStoryRequest, gen GenerateFunc, onDone func(types.Story)) shardqueue.Job {
	if gen == nil {
		return jobFunc(nil)
	}
	return jobFunc(func(ctx context.Context) error {
		story, err := gen(ctx, req)
		if err != nil {
			return fmt.Errorf("generate story for kid %s: %w", req.KidID, err)
		}
		if onDone != nil {
			onDone(story)
		}
		return nil
	})
}
