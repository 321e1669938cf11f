package handlers

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/storynest/storynest/client"
)

// GenerationHandler queues story generations and waits for them.
type GenerationHandler struct {
	client *client.Client
}

func NewGenerationHandler(c *client.Client) *GenerationHandler { return &GenerationHandler{client: c} }

func (gh *GenerationHandler) RegisterTools(s *server.MCPServer) error {
	gen := mcp.NewTool("generate_story",
		mcp.WithDescription("Queue a new story for a kid; returns immediately with a request id. Call await_generations before listing stories."),
		mcp.WithString("kid_id", mcp.Required(), mcp.Description("Kid ID")),
		mcp.WithString("prompt", mcp.Description("Extra instructions for the story")),
		mcp.WithString("genre", mcp.Description("Genre, e.g. adventure or bedtime")),
		mcp.WithString("language", mcp.Description("BCP 47 language tag")),
		mcp.WithString("length", mcp.Description("short, medium or long"), mcp.Enum("short", "medium", "long")),
	)
	await := mcp.NewTool("await_generations",
		mcp.WithDescription("Block until every queued generation for the kid has finished"),
		mcp.WithString("kid_id", mcp.Required(), mcp.Description("Kid ID")),
	)
	s.AddTool(gen, gh.handleGenerate)
	s.AddTool(await, gh.handleAwait)
	return nil
}

func optional(req mcp.CallToolRequest, key string) *string {
	if v, ok := req.GetArguments()[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

func (gh *GenerationHandler) handleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kidID, err := req.RequireString("kid_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Debug().Str("kid_id", kidID).Msg("generate_story invoked")

	start := time.Now()
	ack, err := gh.client.SubmitGeneration(ctx, client.GenerateStoryRequest{
		KidID:    kidID,
		Prompt:   optional(req, "prompt"),
		Genre:    optional(req, "genre"),
		Language: optional(req, "language"),
		Length:   optional(req, "length"),
	})
	if err != nil {
		return toolError("generate_story", start, err), nil
	}
	return jsonResult(ack)
}

func (gh *GenerationHandler) handleAwait(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kidID, err := req.RequireString("kid_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Debug().Str("kid_id", kidID).Msg("await_generations invoked")

	start := time.Now()
	if err := gh.client.AwaitGenerations(ctx, kidID); err != nil {
		return toolError("await_generations", start, err), nil
	}
	return mcp.NewToolResultText("OK"), nil
}
