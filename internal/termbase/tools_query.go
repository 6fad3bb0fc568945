package termbase

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// QueryArgument defines the question to answer.
type QueryArgument struct {
	Question string `json:"question" jsonschema_description:"Natural language question to answer from the stored terms"`
}

// QueryHandler handles the query_terms MCP tool.
type QueryHandler struct {
	service *Service
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(service *Service) *QueryHandler {
	return &QueryHandler{
		service: service,
	}
}

// Handle answers the question from the indexed term context.
func (h *QueryHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args QueryArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return errorResult(notReadyMessage), nil, nil
	}

	question := strings.TrimSpace(args.Question)
	if question == "" {
		return errorResult("Question cannot be empty"), nil, nil
	}

	answer, err := h.service.Answer(ctx, question)
	if err != nil {
		return errorResult(fmt.Sprintf("Query failed: %s", err)), nil, nil
	}

	return textResult(answer), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *QueryHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "query_terms",
		Description: "Answer a question using the stored terms, falling back to the model's general knowledge when they don't cover it",
	}
}

// RegisterQueryTool registers the query tool with an MCP server.
func RegisterQueryTool(server *mcp.Server, service *Service) {
	handler := NewQueryHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
