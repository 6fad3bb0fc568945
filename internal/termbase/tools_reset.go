package termbase

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ResetArgument takes no parameters.
type ResetArgument struct{}

// ResetHandler handles the reset_termbase MCP tool.
type ResetHandler struct {
	service *Service
}

// NewResetHandler creates a new reset handler.
func NewResetHandler(service *Service) *ResetHandler {
	return &ResetHandler{
		service: service,
	}
}

// Handle drops every indexed document and restores the default term set.
func (h *ResetHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ResetArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return errorResult(notReadyMessage), nil, nil
	}

	if err := h.service.Reset(ctx); err != nil {
		return errorResult(fmt.Sprintf("Reset failed: %s", err)), nil, nil
	}

	return textResult(fmt.Sprintf("Term base reset. %d default term(s) restored and the index is empty.",
		len(h.service.Terms()))), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ResetHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "reset_termbase",
		Description: "Delete every stored term and restore the default seed set",
	}
}

// RegisterResetTool registers the reset tool with an MCP server.
func RegisterResetTool(server *mcp.Server, service *Service) {
	handler := NewResetHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
