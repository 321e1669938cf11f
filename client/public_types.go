package client

import (
	"github.com/storynest/storynest/client/internal/repository"
	"github.com/storynest/storynest/client/internal/shardqueue"
	"github.com/storynest/storynest/client/internal/types"
)

// Public type aliases so SDK consumers can import only the client package.
type (
	// Domain entities
	Kid         = types.Kid
	Story       = types.Story
	StoryStatus = types.StoryStatus

	// Requests
	CreateKidRequest     = types.CreateKidRequest
	UpdateKidRequest     = types.UpdateKidRequest
	UpdateStoryRequest   = types.UpdateStoryRequest
	GenerateStoryRequest = types.GenerateStoryRequest

	// Responses
	EnqueueAck = types.EnqueueAck

	// Repositories
	KidRepository   = repository.KidRepository
	StoryRepository = repository.StoryRepository

	QueueConfig = shardqueue.Config
)

const (
	StoryPending  = types.StoryPending
	StoryApproved = types.StoryApproved
	StoryDeclined = types.StoryDeclined
)
