package termbase

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListArgument takes no parameters.
type ListArgument struct{}

// ListHandler handles the list_terms MCP tool.
type ListHandler struct {
	service *Service
}

// NewListHandler creates a new list handler.
func NewListHandler(service *Service) *ListHandler {
	return &ListHandler{
		service: service,
	}
}

// Handle lists every stored term in alphabetical order.
func (h *ListHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ListArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return errorResult(notReadyMessage), nil, nil
	}

	terms := h.service.Terms()
	if len(terms) == 0 {
		return textResult("The term base is empty."), nil, nil
	}

	text := fmt.Sprintf("The term base holds %d term(s):\n\n%s", len(terms), formatEntries(terms.Entries()))
	return textResult(text), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ListHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_terms",
		Description: "List every term and definition currently in the term base",
	}
}

// RegisterListTool registers the list tool with an MCP server.
func RegisterListTool(server *mcp.Server, service *Service) {
	handler := NewListHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
