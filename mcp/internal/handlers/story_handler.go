package handlers

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/storynest/storynest/client"
)

// StoryHandler exposes story browsing and the favourite flag.
type StoryHandler struct {
	client *client.Client
}

func NewStoryHandler(c *client.Client) *StoryHandler { return &StoryHandler{client: c} }

func (sh *StoryHandler) RegisterTools(s *server.MCPServer) error {
	list := mcp.NewTool("list_stories",
		mcp.WithDescription("List the stories of a kid (id, title, status, favourite)"),
		mcp.WithString("kid_id", mcp.Required(), mcp.Description("Kid ID")),
	)
	get := mcp.NewTool("get_story",
		mcp.WithDescription("Get the full text of a story"),
		mcp.WithString("story_id", mcp.Required(), mcp.Description("Story ID")),
	)
	fav := mcp.NewTool("toggle_favourite",
		mcp.WithDescription("Mark or unmark a story as favourite"),
		mcp.WithString("story_id", mcp.Required(), mcp.Description("Story ID")),
		mcp.WithBoolean("favourite", mcp.Required(), mcp.Description("New favourite flag")),
	)
	pending := mcp.NewTool("list_pending_stories",
		mcp.WithDescription("List stories of all the parent's kids that wait for review"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Parent user ID")),
	)
	s.AddTool(list, sh.handleListStories)
	s.AddTool(get, sh.handleGetStory)
	s.AddTool(fav, sh.handleToggleFavourite)
	s.AddTool(pending, sh.handleListPending)
	return nil
}

type storyLite struct {
	ID          string             `json:"id"`
	KidID       string             `json:"kid_id"`
	Title       string             `json:"title"`
	Status      client.StoryStatus `json:"status"`
	IsFavourite bool               `json:"is_favourite"`
}

func liteStories(stories []client.Story) []storyLite {
	out := make([]storyLite, len(stories))
	for i, st := range stories {
		out[i] = storyLite{ID: st.ID, KidID: st.KidID, Title: st.Title, Status: st.Status, IsFavourite: st.IsFavourite}
	}
	return out
}

func (sh *StoryHandler) handleListStories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kidID, err := req.RequireString("kid_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Debug().Str("kid_id", kidID).Msg("list_stories invoked")

	start := time.Now()
	stories, err := sh.client.Stories().ListForOwner(ctx, kidID)
	if err != nil {
		return toolError("list_stories", start, err), nil
	}
	return jsonResult(liteStories(stories))
}

func (sh *StoryHandler) handleGetStory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	storyID, err := req.RequireString("story_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Debug().Str("story_id", storyID).Msg("get_story invoked")

	start := time.Now()
	st, err := sh.client.Stories().Get(ctx, storyID)
	if err != nil {
		return toolError("get_story", start, err), nil
	}
	return jsonResult(st)
}

func (sh *StoryHandler) handleToggleFavourite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	storyID, err := req.RequireString("story_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	favourite, ok := req.GetArguments()["favourite"].(bool)
	if !ok {
		return mcp.NewToolResultError("required argument \"favourite\" must be a boolean"), nil
	}
	log.Debug().Str("story_id", storyID).Bool("favourite", favourite).Msg("toggle_favourite invoked")

	start := time.Now()
	st, err := sh.client.Stories().ToggleFavourite(ctx, storyID, favourite)
	if err != nil {
		return toolError("toggle_favourite", start, err), nil
	}
	return jsonResult(storyLite{ID: st.ID, KidID: st.KidID, Title: st.Title, Status: st.Status, IsFavourite: st.IsFavourite})
}

func (sh *StoryHandler) handleListPending(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Debug().Str("user_id", userID).Msg("list_pending_stories invoked")

	start := time.Now()
	stories, err := sh.client.Stories().ListPending(ctx, userID)
	if err != nil {
		return toolError("list_pending_stories", start, err), nil
	}
	return jsonResult(liteStories(stories))
}
