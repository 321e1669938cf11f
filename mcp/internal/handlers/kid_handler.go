package handlers

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/storynest/storynest/client"
)

// KidHandler exposes read access to kid profiles.
type KidHandler struct {
	client *client.Client
}

func NewKidHandler(c *client.Client) *KidHandler { return &KidHandler{client: c} }

func (kh *KidHandler) RegisterTools(s *server.MCPServer) error {
	list := mcp.NewTool("list_kids",
		mcp.WithDescription("List the kid profiles owned by a parent"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Parent user ID")),
	)
	get := mcp.NewTool("get_kid",
		mcp.WithDescription("Get one kid profile with age, appearance and favourite genres"),
		mcp.WithString("kid_id", mcp.Required(), mcp.Description("Kid ID")),
	)
	s.AddTool(list, kh.handleListKids)
	s.AddTool(get, kh.handleGetKid)
	return nil
}

func (kh *KidHandler) handleListKids(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Debug().Str("user_id", userID).Msg("list_kids invoked")

	start := time.Now()
	kids, err := kh.client.Kids().ListForOwner(ctx, userID)
	if err != nil {
		return toolError("list_kids", start, err), nil
	}

	type lite struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Age  *int   `json:"age,omitempty"`
	}
	out := make([]lite, len(kids))
	for i, k := range kids {
		out[i] = lite{ID: k.ID, Name: k.Name, Age: k.Age}
	}
	return jsonResult(out)
}

func (kh *KidHandler) handleGetKid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kidID, err := req.RequireString("kid_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Debug().Str("kid_id", kidID).Msg("get_kid invoked")

	start := time.Now()
	k, err := kh.client.Kids().Get(ctx, kidID)
	if err != nil {
		return toolError("get_kid", start, err), nil
	}
	return jsonResult(k)
}
