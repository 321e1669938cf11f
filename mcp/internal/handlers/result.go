// Package handlers implements the storynest MCP tools on top of the SDK.
package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/storynest/storynest/client"
)

// ToolRegisterer adds a group of tools to an MCP server.
type ToolRegisterer interface {
	RegisterTools(s *server.MCPServer) error
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError reports a failed SDK call as a tool-level error so the model can
// read it. Only encoding problems become protocol errors.
func toolError(tool string, start time.Time, err error) *mcp.CallToolResult {
	ev := log.Error().Err(err).Str("tool", tool).Dur("elapsed", time.Since(start))
	if code, ok := client.StatusCode(err); ok {
		ev = ev.Int("status_code", code)
	}
	ev.Msg("tool call failed")
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
}
