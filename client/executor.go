package client

import (
	"context"

	"github.com/storynest/storynest/client/internal/shardqueue"
)

// executor runs queued generations per kid; *shardqueue.ShardExecutor
// satisfies it.
type executor interface {
	Submit(ctx context.Context, kidID string, j shardqueue.Job) error
	Barrier(ctx context.Context, kidID string) error
	Stop()
}
